package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/address"
	"github.com/clearstone/finportal/internal/common"
)

// NewMismatchLedger creates the SQL-backed address mismatch ledger.
func NewMismatchLedger(store *Store, logger *slog.Logger) address.MismatchLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &mismatchLedger{store: store, logger: logger}
}

type mismatchLedger struct {
	store  *Store
	logger *slog.Logger
}

// Upsert writes the latest observation for a client/document pair. The
// unique constraint keeps one row per pair; a repeat observation updates it
// in place and reopens it if it had been resolved.
func (l *mismatchLedger) Upsert(ctx context.Context, rec address.MismatchRecord) error {
	components, err := json.Marshal(rec.Components)
	if err != nil {
		return fmt.Errorf("encode components: %w", err)
	}
	now := time.Now().UTC()
	query := l.store.rebind(`
		INSERT INTO address_mismatches (
			id, client_id, document_id, mismatch_type,
			extracted_street, extracted_city, extracted_region, extracted_postal, extracted_country,
			stored_street, stored_city, stored_region, stored_postal, stored_country,
			components, resolved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?)
		ON CONFLICT (client_id, document_id) DO UPDATE SET
			mismatch_type = excluded.mismatch_type,
			extracted_street = excluded.extracted_street,
			extracted_city = excluded.extracted_city,
			extracted_region = excluded.extracted_region,
			extracted_postal = excluded.extracted_postal,
			extracted_country = excluded.extracted_country,
			stored_street = excluded.stored_street,
			stored_city = excluded.stored_city,
			stored_region = excluded.stored_region,
			stored_postal = excluded.stored_postal,
			stored_country = excluded.stored_country,
			components = excluded.components,
			resolved = FALSE,
			updated_at = excluded.updated_at`)
	_, err = l.store.db.ExecContext(ctx, query,
		uuid.NewString(), rec.ClientID, rec.DocumentID, string(rec.Type),
		rec.Extracted.Street, rec.Extracted.City, rec.Extracted.Region, rec.Extracted.Postal, rec.Extracted.Country,
		rec.Stored.Street, rec.Stored.City, rec.Stored.Region, rec.Stored.Postal, rec.Stored.Country,
		string(components), now, now)
	if err != nil {
		return wrapDBErr("upsert mismatch", err)
	}
	l.logger.Info("ledger.mismatch.upsert",
		"client_id", rec.ClientID,
		"document_id", rec.DocumentID,
		"type", string(rec.Type))
	return nil
}

// Delete removes the record for a pair; deleting a pair with no record is
// not an error.
func (l *mismatchLedger) Delete(ctx context.Context, clientID, documentID string) error {
	query := l.store.rebind(`DELETE FROM address_mismatches WHERE client_id = ? AND document_id = ?`)
	res, err := l.store.db.ExecContext(ctx, query, clientID, documentID)
	if err != nil {
		return wrapDBErr("delete mismatch", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		l.logger.Info("ledger.mismatch.delete",
			"client_id", clientID,
			"document_id", documentID)
	}
	return nil
}

// MarkResolved acknowledges a mismatch without deleting the history row.
func (l *mismatchLedger) MarkResolved(ctx context.Context, clientID, documentID string) error {
	query := l.store.rebind(`
		UPDATE address_mismatches
		SET resolved = TRUE, updated_at = ?
		WHERE client_id = ? AND document_id = ?`)
	res, err := l.store.db.ExecContext(ctx, query, time.Now().UTC(), clientID, documentID)
	if err != nil {
		return wrapDBErr("resolve mismatch", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBErr("resolve mismatch", err)
	}
	if n == 0 {
		return fmt.Errorf("mismatch %s/%s: %w", clientID, documentID, common.ErrNotFound)
	}
	return nil
}

func (l *mismatchLedger) ListUnresolved(ctx context.Context, clientID string) ([]address.MismatchRecord, error) {
	query := l.store.rebind(`
		SELECT id, client_id, document_id, mismatch_type,
			extracted_street, extracted_city, extracted_region, extracted_postal, extracted_country,
			stored_street, stored_city, stored_region, stored_postal, stored_country,
			components, resolved, created_at, updated_at
		FROM address_mismatches
		WHERE client_id = ? AND resolved = FALSE
		ORDER BY created_at`)
	rows, err := l.store.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, wrapDBErr("list mismatches", err)
	}
	defer rows.Close()

	var out []address.MismatchRecord
	for rows.Next() {
		var rec address.MismatchRecord
		var mtype, components string
		if err := rows.Scan(
			&rec.ID, &rec.ClientID, &rec.DocumentID, &mtype,
			&rec.Extracted.Street, &rec.Extracted.City, &rec.Extracted.Region, &rec.Extracted.Postal, &rec.Extracted.Country,
			&rec.Stored.Street, &rec.Stored.City, &rec.Stored.Region, &rec.Stored.Postal, &rec.Stored.Country,
			&components, &rec.Resolved, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, wrapDBErr("scan mismatch", err)
		}
		rec.Type = constants.MismatchType(mtype)
		if err := json.Unmarshal([]byte(components), &rec.Components); err != nil {
			return nil, fmt.Errorf("decode components: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("list mismatches", err)
	}
	return out, nil
}
