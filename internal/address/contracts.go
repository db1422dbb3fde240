package address

import (
	"context"
	"time"

	"github.com/clearstone/finportal/constants"
)

// Address is a postal address split into comparable components.
type Address struct {
	Street      string
	City        string
	Region      string
	Postal      string
	Country     string
	FullAddress string
}

// IsEmpty reports whether every comparable component is blank. Country is
// excluded: fallback synthesis fills it in unconditionally.
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.City == "" && a.Region == "" && a.Postal == ""
}

// ComponentResult is the outcome of comparing one address component.
type ComponentResult struct {
	Component  string
	Extracted  string
	Stored     string
	Similarity float64
	Match      bool
}

// MismatchRecord is one open or resolved address discrepancy for a
// client/document pair.
type MismatchRecord struct {
	ID         string
	ClientID   string
	DocumentID string
	Type       constants.MismatchType
	Extracted  Address
	Stored     Address
	Components []string
	Resolved   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ClientDirectory provides the address of record for a client.
type ClientDirectory interface {
	GetClientAddress(ctx context.Context, clientID string) (Address, error)
	SetClientAddress(ctx context.Context, clientID string, addr Address) error
}

// MismatchLedger stores address discrepancies, at most one live record per
// client/document pair.
type MismatchLedger interface {
	Upsert(ctx context.Context, rec MismatchRecord) error
	Delete(ctx context.Context, clientID, documentID string) error
	MarkResolved(ctx context.Context, clientID, documentID string) error
	ListUnresolved(ctx context.Context, clientID string) ([]MismatchRecord, error)
}
