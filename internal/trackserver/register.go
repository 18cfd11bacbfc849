// Package trackserver registers the application-tracker MCP tools:
// mailbox search/sync, item import, record CRUD, and background job /
// enrichment status.
package trackserver

import (
	"github.com/anatolykoptev/go_apply/internal/pipeline/ingest"
	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Deps are the services the tools close over.
type Deps struct {
	Ingest  *ingest.Service
	Records *store.Store
}

// RegisterTools registers all tracker tools on the given MCP server.
func RegisterTools(server *mcp.Server, deps Deps) {
	registerMailSearch(server, deps)
	registerMailSync(server, deps)
	registerImportItems(server, deps)
	registerJobStatus(server, deps)
	registerEnrichmentStatus(server, deps)
	registerReEnrich(server, deps)
	registerRecordAdd(server, deps)
	registerRecordList(server, deps)
	registerRecordUpdate(server, deps)
}
