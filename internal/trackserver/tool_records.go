package trackserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
	"github.com/anatolykoptev/go_apply/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RecordAddInput is the input for record_add.
type RecordAddInput struct {
	Company    string  `json:"company"`
	JobTitle   string  `json:"job_title"`
	PostingURL string  `json:"posting_url,omitempty"`
	Location   string  `json:"location,omitempty"`
	WagesMin   float64 `json:"wages_min,omitempty"`
	WagesMax   float64 `json:"wages_max,omitempty"`
	WageType   string  `json:"wage_type,omitempty"`
	Notes      string  `json:"notes,omitempty"`
	Applied    string  `json:"applied,omitempty"` // RFC 3339, defaults to now
}

// RecordListInput is the input for record_list.
type RecordListInput struct {
	Limit int `json:"limit,omitempty"`
}

// RecordListResult is the output for record_list.
type RecordListResult struct {
	Records []store.JobRecord `json:"records"`
	Total   int               `json:"total"`
}

// RecordUpdateInput is the input for record_update.
type RecordUpdateInput struct {
	ID       int64  `json:"id"`
	Response string `json:"response,omitempty"`
	Note     string `json:"note,omitempty"`
}

// RecordResult is the output for add/update operations.
type RecordResult struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

var validResponses = []store.Response{
	store.ResponseNone, store.ResponseRejected, store.ResponsePhoneScreen,
	store.ResponseInterview, store.ResponseOffer, store.ResponseHired,
	store.ResponseOther,
}

func parseResponse(s string) (store.Response, error) {
	for _, r := range validResponses {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid response %q (valid: No Response, Rejected, Phone Screen, Interview, Offer, Hired, Other)", s)
}

func registerRecordAdd(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_add",
		Description: "Add a tracked application manually. Company and job_title are required. Returns the assigned record id. If a posting URL is given, the record can later be enriched via re_enrich.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input RecordAddInput) (*mcp.CallToolResult, *RecordResult, error) {
		if input.Company == "" || input.JobTitle == "" {
			return nil, nil, errors.New("company and job_title are required")
		}

		rec := &store.JobRecord{
			Company:         input.Company,
			JobTitle:        input.JobTitle,
			Website:         input.PostingURL,
			CompanyLocation: input.Location,
			WagesMin:        input.WagesMin,
			WagesMax:        input.WagesMax,
			WageType:        store.WageType(input.WageType),
			Notes:           input.Notes,
			Source:          "Manual",
		}
		if input.Applied != "" {
			t, err := time.Parse(time.RFC3339, input.Applied)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid applied date: %w", err)
			}
			rec.Applied = t
		}

		if err := deps.Records.Save(ctx, rec); err != nil {
			return nil, nil, err
		}
		return nil, &RecordResult{
			ID:      rec.ID,
			Message: fmt.Sprintf("Application to '%s' at '%s' saved (id=%d)", input.JobTitle, input.Company, rec.ID),
		}, nil
	})
}

func registerRecordList(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_list",
		Description: "List tracked applications sorted by most recently updated. Returns full records including the status-check log and enrichment data.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input RecordListInput) (*mcp.CallToolResult, *RecordListResult, error) {
		limit := toolutil.ClampLimit(input.Limit, 50, 200)
		records, err := deps.Records.List(ctx, limit)
		if err != nil {
			return nil, nil, err
		}
		total, err := deps.Records.Count(ctx)
		if err != nil {
			total = len(records)
		}
		return nil, &RecordListResult{Records: records, Total: total}, nil
	})
}

func registerRecordUpdate(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_update",
		Description: "Update a tracked application by id: set the response outcome (No Response, Rejected, Phone Screen, Interview, Offer, Hired) and/or append a note to the status log. Get ids from record_list.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input RecordUpdateInput) (*mcp.CallToolResult, *RecordResult, error) {
		if input.ID <= 0 {
			return nil, nil, errors.New("id is required")
		}
		if input.Response == "" && input.Note == "" {
			return nil, nil, errors.New("at least one of response or note must be provided")
		}

		rec, err := deps.Records.ByID(ctx, input.ID)
		if err != nil {
			return nil, nil, err
		}
		if rec == nil {
			return nil, nil, fmt.Errorf("record %d not found", input.ID)
		}

		if input.Response != "" {
			resp, err := parseResponse(input.Response)
			if err != nil {
				return nil, nil, err
			}
			rec.Response = resp
			if resp != store.ResponseNone && rec.Responded == nil {
				now := time.Now()
				rec.Responded = &now
			}
		}
		if input.Note != "" {
			rec.AppendStatusCheck(time.Now(), input.Note)
		}

		if err := deps.Records.Save(ctx, rec); err != nil {
			return nil, nil, err
		}
		return nil, &RecordResult{
			ID:      rec.ID,
			Message: fmt.Sprintf("Record %d updated", rec.ID),
		}, nil
	})
}
