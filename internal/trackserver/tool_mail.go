package trackserver

import (
	"context"
	"errors"

	"github.com/anatolykoptev/go_apply/internal/pipeline/email"
	"github.com/anatolykoptev/go_apply/internal/pipeline/ingest"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// JobSubmitted is the output of tools that start a background job.
type JobSubmitted struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// MailSearchInput is the input for mail_search and mail_sync.
type MailSearchInput struct {
	IgnorePrevious bool `json:"ignore_previous,omitempty"`
}

// ImportItemsInput is the input for import_items: lists of classified
// items, usually taken from a mail_search result.
type ImportItemsInput struct {
	Applications  []email.Item `json:"applications,omitempty"`
	StatusUpdates []email.Item `json:"status_updates,omitempty"`
	Responses     []email.Item `json:"responses,omitempty"`
}

func registerMailSearch(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "mail_search",
		Description: "Search the configured mailbox for job-application emails and classify them into applications, status updates, and responses. Runs in the background; returns a job id to poll with job_status.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input MailSearchInput) (*mcp.CallToolResult, *JobSubmitted, error) {
		id := deps.Ingest.StartSearch(ingest.SearchOptions{IgnorePrevious: input.IgnorePrevious})
		return nil, &JobSubmitted{JobID: id, Message: "mailbox search started"}, nil
	})
}

func registerMailSync(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "mail_sync",
		Description: "Search the mailbox, import every classified item into the tracker, and queue new records for enrichment. Runs in the background; returns a job id to poll with job_status.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input MailSearchInput) (*mcp.CallToolResult, *JobSubmitted, error) {
		id := deps.Ingest.StartSync(ingest.SearchOptions{IgnorePrevious: input.IgnorePrevious})
		return nil, &JobSubmitted{JobID: id, Message: "mailbox sync started"}, nil
	})
}

func registerImportItems(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_items",
		Description: "Import already-classified email items into the tracker. Applications create records (duplicates are skipped), status updates append to the status log, responses update the outcome. Returns a job id to poll with job_status.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ImportItemsInput) (*mcp.CallToolResult, *JobSubmitted, error) {
		if len(input.Applications)+len(input.StatusUpdates)+len(input.Responses) == 0 {
			return nil, nil, errors.New("no items to import")
		}
		id := deps.Ingest.StartImport(input.Applications, input.StatusUpdates, input.Responses)
		return nil, &JobSubmitted{JobID: id, Message: "import started"}, nil
	})
}
