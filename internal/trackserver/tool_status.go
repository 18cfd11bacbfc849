package trackserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// JobStatusInput is the input for job_status.
type JobStatusInput struct {
	JobID string `json:"job_id"`
}

// EnrichmentStatusOutput is the output for enrichment_status.
type EnrichmentStatusOutput struct {
	Processing bool `json:"processing"`
	QueueSize  int  `json:"queue_size"`
}

// ReEnrichInput is the input for re_enrich.
type ReEnrichInput struct {
	RecordIDs []int64 `json:"record_ids"`
}

// ReEnrichOutput is the output for re_enrich.
type ReEnrichOutput struct {
	Queued  int    `json:"queued"`
	Message string `json:"message"`
}

func registerJobStatus(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_status",
		Description: "Get the status of a background job by id: state (queued/running/completed/failed), progress 0-100, log messages, and the result once completed.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input JobStatusInput) (*mcp.CallToolResult, any, error) {
		if input.JobID == "" {
			return nil, nil, errors.New("job_id is required")
		}
		job := deps.Ingest.JobStatus(input.JobID)
		if job == nil {
			return nil, nil, fmt.Errorf("job %s not found", input.JobID)
		}
		return nil, job, nil
	})
}

func registerEnrichmentStatus(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "enrichment_status",
		Description: "Report whether the enrichment queue is currently processing and how many postings it still holds.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *EnrichmentStatusOutput, error) {
		processing, size := deps.Ingest.EnrichmentStatus()
		return nil, &EnrichmentStatusOutput{Processing: processing, QueueSize: size}, nil
	})
}

func registerReEnrich(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "re_enrich",
		Description: "Queue existing tracker records for another enrichment pass against their posting URLs. Records without a posting URL are skipped.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ReEnrichInput) (*mcp.CallToolResult, *ReEnrichOutput, error) {
		if len(input.RecordIDs) == 0 {
			return nil, nil, errors.New("record_ids is required")
		}
		queued := deps.Ingest.ReEnrich(ctx, input.RecordIDs)
		return nil, &ReEnrichOutput{
			Queued:  queued,
			Message: fmt.Sprintf("%d of %d records queued for enrichment", queued, len(input.RecordIDs)),
		}, nil
	})
}
