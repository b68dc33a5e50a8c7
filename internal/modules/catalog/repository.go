package catalog

import "context"

// Repository persists aggregates of one Kind in the relational store.
type Repository interface {
	Kind() Kind
	// Upsert writes the aggregate, fully replacing its nested collections,
	// and returns its stable internal id.
	Upsert(ctx context.Context, agg *Aggregate) (string, error)
	// Fetch reconstructs the aggregate stored under externalID.
	Fetch(ctx context.Context, externalID string) (*Aggregate, error)
	// Delete removes the aggregate, its nested rows and its ledger entry.
	Delete(ctx context.Context, internalID string) (bool, error)
	DeleteByExternalID(ctx context.Context, externalID string) (bool, error)
	InternalID(ctx context.Context, externalID string) (string, error)
	// UpdateCore touches only title, description and status.
	UpdateCore(ctx context.Context, externalID string, update CoreUpdate) error
	List(ctx context.Context, filter ListFilter) ([]*Summary, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// StatusLedger tracks the lifecycle state of stored aggregates.
type StatusLedger interface {
	SetStatus(ctx context.Context, internalID string, status Status) error
	SetStatusByExternalID(ctx context.Context, externalID string, status Status) error
	Status(ctx context.Context, internalID string) (Status, error)
	MaxExternalIDWithStatus(ctx context.Context, status Status) (string, bool, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
}

// CoreUpdate carries the dashboard-editable fields. Nil fields are left as is.
type CoreUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// ListFilter narrows and pages a listing. Zero Limit means no limit.
type ListFilter struct {
	Search string
	Status Status
	Limit  int
	Offset int
}
