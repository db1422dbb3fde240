package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clearstone/finportal/internal/address"
	"github.com/clearstone/finportal/internal/common"
)

// NewClientDirectory creates the SQL-backed client address directory.
func NewClientDirectory(store *Store, logger *slog.Logger) address.ClientDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &clientDirectory{store: store, logger: logger}
}

type clientDirectory struct {
	store  *Store
	logger *slog.Logger
}

func (d *clientDirectory) GetClientAddress(ctx context.Context, clientID string) (address.Address, error) {
	query := d.store.rebind(`
		SELECT street, city, region, postal, country, full_address
		FROM client_addresses
		WHERE client_id = ?`)
	var addr address.Address
	err := d.store.db.QueryRowContext(ctx, query, clientID).Scan(
		&addr.Street, &addr.City, &addr.Region, &addr.Postal, &addr.Country, &addr.FullAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return address.Address{}, fmt.Errorf("client %s: %w", clientID, common.ErrNoAddress)
	}
	if err != nil {
		return address.Address{}, wrapDBErr("get client address", err)
	}
	if addr.IsEmpty() {
		return address.Address{}, fmt.Errorf("client %s: %w", clientID, common.ErrNoAddress)
	}
	return addr, nil
}

func (d *clientDirectory) SetClientAddress(ctx context.Context, clientID string, addr address.Address) error {
	if addr.FullAddress == "" {
		addr.FullAddress = address.BuildFullAddress(addr)
	}
	query := d.store.rebind(`
		INSERT INTO client_addresses (client_id, street, city, region, postal, country, full_address, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id) DO UPDATE SET
			street = excluded.street,
			city = excluded.city,
			region = excluded.region,
			postal = excluded.postal,
			country = excluded.country,
			full_address = excluded.full_address,
			updated_at = excluded.updated_at`)
	_, err := d.store.db.ExecContext(ctx, query,
		clientID, addr.Street, addr.City, addr.Region, addr.Postal, addr.Country, addr.FullAddress, time.Now().UTC())
	if err != nil {
		return wrapDBErr("set client address", err)
	}
	d.logger.Info("directory.address.set", "client_id", clientID)
	return nil
}
