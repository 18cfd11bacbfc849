package pipeline

import (
	"net/http"
	"time"
)

// Config holds all pipeline configuration, injected from main.
type Config struct {
	MailHost         string
	MailPort         int
	MailTLS          bool
	MailSkipVerify   bool
	MailUsername     string
	MailFolders      []string
	LookbackWindow   time.Duration // cutoff when no previous import exists
	FetchBatchSize   int           // messages fetched per IMAP batch

	FetchTimeout    time.Duration
	MaxContentChars int

	EnrichDelay        time.Duration // standard inter-request delay
	EnrichHostDelays   map[string]time.Duration
	EnrichBackoffBase  time.Duration
	EnrichMaxFailures  int // consecutive rate-limit failures before the pass stops

	JobRetention         time.Duration // terminal background jobs kept this long
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient *http.Client
}

var cfg Config

// Cfg exposes the pipeline configuration for sub-packages.
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the pipeline with the given configuration.
func Init(c Config) {
	if c.FetchBatchSize <= 0 {
		c.FetchBatchSize = 25
	}
	if c.LookbackWindow <= 0 {
		c.LookbackWindow = 90 * 24 * time.Hour
	}
	if c.EnrichDelay <= 0 {
		c.EnrichDelay = 700 * time.Millisecond
	}
	if c.EnrichHostDelays == nil {
		// LinkedIn throttles aggressively; everyone else gets the
		// standard delay.
		c.EnrichHostDelays = map[string]time.Duration{
			"linkedin.com": 12 * time.Second,
		}
	}
	if c.EnrichBackoffBase <= 0 {
		c.EnrichBackoffBase = 2 * time.Second
	}
	if c.EnrichMaxFailures <= 0 {
		c.EnrichMaxFailures = 5
	}
	cfg = c
	Cfg = &cfg
}
