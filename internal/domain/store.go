package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// FundStore persists the fund registry.
type FundStore interface {
	Create(ctx context.Context, rec FundRecord) error
	GetByID(ctx context.Context, id string) (FundRecord, error)
	GetBySymbol(ctx context.Context, symbol string) (FundRecord, error)
	ListByCreator(ctx context.Context, creator common.Address) ([]FundRecord, error)
	List(ctx context.Context, opts ListOpts) ([]FundRecord, error)
}

// ActivityStore persists the append-only activity history.
type ActivityStore interface {
	Insert(ctx context.Context, rec ActivityRecord) error
	GetByID(ctx context.Context, id string) (ActivityRecord, error)
	ListByHolder(ctx context.Context, holder common.Address, opts ListOpts) ([]ActivityRecord, error)
	List(ctx context.Context, opts ListOpts) ([]ActivityRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]ActivityRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
}
