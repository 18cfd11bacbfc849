package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
)

// Salary is a parsed compensation range.
type Salary struct {
	Min  float64        `json:"min"`
	Max  float64        `json:"max"`
	Type store.WageType `json:"type"`
}

var (
	amountRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	// "$120-130K" and friends: a range whose K suffix applies to both ends.
	kRangeRe = regexp.MustCompile(`\$\s?\d+(?:\.\d+)?\s*[-–—]\s*\$?\s?\d+(?:\.\d+)?\s*[kK]\b`)
	// Generic currency mention, optionally a range, optionally a unit tail.
	currencyRe = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?\s*[kK]?(?:\s*(?:[-–—]|to)\s*\$?\s?\d[\d,]*(?:\.\d+)?\s*[kK]?)?(?:\s*(?:/|per)\s*[a-zA-Z]+)?`)
	// K applies only when adjacent to a digit, so "per week" stays a unit.
	digitKRe = regexp.MustCompile(`\d\s*[kK]\b`)
)

// ParseSalary parses a located salary string. A single amount yields
// min = max. Returns nil when no amount can be extracted; never panics
// on malformed input.
func ParseSalary(s string) *Salary {
	return parseSalary(s, false)
}

// ParsePageSalary is the page-extraction variant: when only one amount
// is present and no explicit max, the max is synthesized as min×1.2.
func ParsePageSalary(s string) *Salary {
	return parseSalary(s, true)
}

func parseSalary(s string, synthesizeMax bool) *Salary {
	if s == "" {
		return nil
	}

	amounts := amountRe.FindAllString(s, 2)
	if len(amounts) == 0 {
		return nil
	}

	values := make([]float64, 0, 2)
	for _, a := range amounts {
		v, err := strconv.ParseFloat(strings.ReplaceAll(a, ",", ""), 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil
	}

	// K-notation scales sub-thousand amounts.
	if digitKRe.MatchString(s) {
		for i, v := range values {
			if v < 1000 {
				values[i] = v * 1000
			}
		}
	}

	sal := &Salary{Min: values[0], Type: detectWageUnit(s)}
	switch {
	case len(values) >= 2:
		sal.Max = values[1]
	case synthesizeMax:
		sal.Max = sal.Min * 1.2
	default:
		sal.Max = sal.Min
	}

	if sal.Min > sal.Max {
		sal.Min, sal.Max = sal.Max, sal.Min
	}
	return sal
}

// detectWageUnit infers the pay period from unit keywords; yearly is the
// default for bare amounts.
func detectWageUnit(s string) store.WageType {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "hour"), strings.Contains(l, "/hr"), strings.Contains(l, " hr"):
		return store.WageHourly
	case strings.Contains(l, "week"), strings.Contains(l, "/wk"):
		return store.WageWeekly
	case strings.Contains(l, "month"), strings.Contains(l, "/mo"):
		return store.WageMonthly
	case strings.Contains(l, "project"):
		return store.WageProject
	default:
		return store.WageYearly
	}
}

// salary locator tiers, in order. Each returns a candidate string.

func salaryFromSelectors(doc *goquery.Document) string {
	var out string
	doc.Find(".salary, .compensation, [class*=salary], [class*=compensation]").
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.TrimSpace(s.Text())
			if strings.ContainsAny(t, "0123456789") {
				out = t
				return false
			}
			return true
		})
	return out
}

func salaryFromRangeBlock(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find(".compensation__salary-range, .salary-range").First().Text())
}

func salaryFromInsights(doc *goquery.Document) string {
	var out string
	doc.Find(".job-insight, [class*=job-insight]").
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.TrimSpace(s.Text())
			if strings.Contains(t, "$") {
				out = t
				return false
			}
			return true
		})
	return out
}

// salaryFromDescription scans free text for currency patterns. K-notation
// ranges are preferred; among generic matches the longest wins.
func salaryFromDescription(desc string) string {
	if desc == "" {
		return ""
	}
	if m := kRangeRe.FindString(desc); m != "" {
		return m
	}
	var best string
	for _, m := range currencyRe.FindAllString(desc, -1) {
		if len(m) > len(best) {
			best = m
		}
	}
	return best
}

func salaryFromListItems(doc *goquery.Document) string {
	var out string
	doc.Find("li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		if strings.Contains(t, "$") {
			out = t
			return false
		}
		return true
	})
	return out
}

// PageSalary runs the five-tier salary fallback over a posting page and
// its already-extracted description. Returns nil when nothing parses.
func PageSalary(doc *goquery.Document, description string) *Salary {
	for _, locate := range []func() string{
		func() string { return salaryFromSelectors(doc) },
		func() string { return salaryFromRangeBlock(doc) },
		func() string { return salaryFromInsights(doc) },
		func() string { return salaryFromDescription(description) },
		func() string { return salaryFromListItems(doc) },
	} {
		if raw := locate(); raw != "" {
			if sal := ParsePageSalary(raw); sal != nil {
				return sal
			}
		}
	}
	return nil
}
