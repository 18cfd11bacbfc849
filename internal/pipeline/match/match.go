// Package match decides whether an extracted item refers to an already
// stored record, and how incoming data merges into one.
package match

import (
	"context"

	"github.com/anatolykoptev/go_apply/internal/pipeline/email"
	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
)

// Lookup is the slice of the record store the matcher needs.
type Lookup interface {
	ByExternalID(ctx context.Context, externalID string) (*store.JobRecord, error)
	ByCompanyTitle(ctx context.Context, company, title string) (*store.JobRecord, error)
	LatestByCompany(ctx context.Context, company string) (*store.JobRecord, error)
}

// Find locates the stored record an item refers to, or nil when none
// matches. Matching order: exact external id, then (company, title).
// Status and response items additionally fall back to the most recently
// applied record for the company alone.
func Find(ctx context.Context, l Lookup, item email.Item) (*store.JobRecord, error) {
	if item.ExternalJobID != "" {
		rec, err := l.ByExternalID(ctx, item.ExternalJobID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}

	if item.Company != "" && item.JobTitle != "" {
		rec, err := l.ByCompanyTitle(ctx, item.Company, item.JobTitle)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}

	if item.Kind == email.KindStatusUpdate || item.Kind == email.KindResponse {
		return l.LatestByCompany(ctx, item.Company)
	}
	return nil, nil
}
