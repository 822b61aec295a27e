package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/multiplay/internal/directory"
)

const listingColumns = `id, owner_name, max_public_slots, open_public_slots, lan, presence,
	advertised, address, settings, token_hash, created_at`

// ListingRepository stores session listings. It implements directory.Store.
type ListingRepository struct {
	db *pgxpool.Pool
}

// NewListingRepository creates a ListingRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewListingRepository(db *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{db: db}
}

func scanListing(row pgx.Row) (directory.Listing, error) {
	var l directory.Listing
	err := row.Scan(
		&l.ID, &l.OwnerName, &l.MaxPublicSlots, &l.OpenPublicSlots,
		&l.LAN, &l.Presence, &l.Advertised, &l.Address,
		&l.Settings, &l.TokenHash, &l.CreatedAt,
	)
	if l.Settings == nil {
		l.Settings = map[string]string{}
	}
	return l, err
}

// Insert stores a new listing.
//
// Precondition: l.ID must be unique.
// Postcondition: Returns nil, directory.ErrListingExists for a duplicate ID,
// or another non-nil error.
func (r *ListingRepository) Insert(ctx context.Context, l directory.Listing) error {
	settings := l.Settings
	if settings == nil {
		settings = map[string]string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO session_listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		l.ID, l.OwnerName, l.MaxPublicSlots, l.OpenPublicSlots,
		l.LAN, l.Presence, l.Advertised, l.Address,
		settings, l.TokenHash, l.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", directory.ErrListingExists, l.ID)
		}
		return fmt.Errorf("inserting listing: %w", err)
	}
	return nil
}

// Get returns the listing with id.
//
// Postcondition: Returns the listing or directory.ErrListingNotFound.
func (r *ListingRepository) Get(ctx context.Context, id string) (directory.Listing, error) {
	l, err := scanListing(r.db.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM session_listings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return directory.Listing{}, directory.ErrListingNotFound
		}
		return directory.Listing{}, fmt.Errorf("querying listing: %w", err)
	}
	return l, nil
}

// List returns advertised listings matching q, newest first.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *ListingRepository) List(ctx context.Context, q directory.Query) ([]directory.Listing, error) {
	limit := q.MaxResults
	if limit <= 0 {
		limit = directory.DefaultMaxResults
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM session_listings
		WHERE advertised AND lan = $1 AND (NOT $2 OR presence)
		ORDER BY created_at DESC, id ASC
		LIMIT $3`,
		q.LAN, q.Presence, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	out := make([]directory.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listing row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AdjustOpenSlots adds delta to the open slot count in one statement,
// clamped to the maximum.
//
// Postcondition: Returns the updated listing, directory.ErrSessionFull when
// no slot is open to claim, or directory.ErrListingNotFound.
func (r *ListingRepository) AdjustOpenSlots(ctx context.Context, id string, delta int) (directory.Listing, error) {
	l, err := scanListing(r.db.QueryRow(ctx, `
		UPDATE session_listings
		SET open_public_slots = LEAST(open_public_slots + $2, max_public_slots)
		WHERE id = $1 AND open_public_slots + $2 >= 0
		RETURNING `+listingColumns,
		id, delta,
	))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return directory.Listing{}, fmt.Errorf("adjusting open slots: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM session_listings WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return directory.Listing{}, fmt.Errorf("checking listing: %w", err)
	}
	if !exists {
		return directory.Listing{}, directory.ErrListingNotFound
	}
	return directory.Listing{}, directory.ErrSessionFull
}

// Delete removes the listing with id.
//
// Postcondition: Returns nil or directory.ErrListingNotFound.
func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM session_listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrListingNotFound
	}
	return nil
}
