package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samirrijal/staymap/internal/core/domain"
)

// PropertyRepo implements ports.PropertyRepository with pgx.
type PropertyRepo struct {
	db *DB
}

// NewPropertyRepo creates a new PropertyRepo.
func NewPropertyRepo(db *DB) *PropertyRepo {
	return &PropertyRepo{db: db}
}

const propertyColumns = `
	id, slug, title, price, currency, bedrooms, guests,
	COALESCE(city, ''), COALESCE(host_id, ''), COALESCE(hospitable_id, ''),
	ST_Y(location::geometry) AS lat,
	ST_X(location::geometry) AS lng,
	active, COALESCE(metadata, '{}'), updated_at`

// Synced listings are keyed by their channel-manager ID so a renamed listing
// keeps its row; imported ones are keyed by slug.
const (
	upsertByHospitableID = `
		INSERT INTO properties (slug, title, price, currency, bedrooms, guests, city, host_id, hospitable_id,
		                        location, active, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9,
		        CASE WHEN $10::float8 IS NULL OR $11::float8 IS NULL THEN NULL
		             ELSE ST_SetSRID(ST_MakePoint($11, $10), 4326)::geography END,
		        $12, $13, $14)
		ON CONFLICT (hospitable_id) DO UPDATE
		SET title = EXCLUDED.title, price = EXCLUDED.price, currency = EXCLUDED.currency,
		    bedrooms = EXCLUDED.bedrooms, guests = EXCLUDED.guests, city = EXCLUDED.city,
		    location = EXCLUDED.location, active = EXCLUDED.active,
		    metadata = COALESCE(properties.metadata, '{}') || COALESCE(EXCLUDED.metadata, '{}'),
		    updated_at = EXCLUDED.updated_at
		RETURNING id`

	upsertBySlug = `
		INSERT INTO properties (slug, title, price, currency, bedrooms, guests, city, host_id, hospitable_id,
		                        location, active, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''),
		        CASE WHEN $10::float8 IS NULL OR $11::float8 IS NULL THEN NULL
		             ELSE ST_SetSRID(ST_MakePoint($11, $10), 4326)::geography END,
		        $12, $13, $14)
		ON CONFLICT (slug) DO UPDATE
		SET title = EXCLUDED.title, price = EXCLUDED.price, currency = EXCLUDED.currency,
		    bedrooms = EXCLUDED.bedrooms, guests = EXCLUDED.guests, city = EXCLUDED.city,
		    host_id = EXCLUDED.host_id, location = EXCLUDED.location, active = EXCLUDED.active,
		    metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at
		RETURNING id`
)

func upsertArgs(p *domain.Property) (string, []any) {
	var lat, lng *float64
	if p.Geolocation != nil {
		lat, lng = &p.Geolocation.Lat, &p.Geolocation.Lng
	}
	query := upsertBySlug
	if p.HospitableID != "" {
		query = upsertByHospitableID
	}
	return query, []any{
		p.Slug, p.Title, p.Price, p.Currency, p.Bedrooms, p.Guests, p.City, p.HostID, p.HospitableID,
		lat, lng, p.Active, p.Metadata, p.UpdatedAt,
	}
}

// Upsert inserts or updates a single property and fills in its ID.
func (r *PropertyRepo) Upsert(ctx context.Context, p *domain.Property) error {
	query, args := upsertArgs(p)
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&p.ID); err != nil {
		return fmt.Errorf("upsert property %s: %w", p.Slug, err)
	}
	return nil
}

// UpsertBatch inserts many properties using pgx.Batch and fills in their IDs.
func (r *PropertyRepo) UpsertBatch(ctx context.Context, properties []domain.Property) error {
	batch := &pgx.Batch{}
	for i := range properties {
		query, args := upsertArgs(&properties[i])
		batch.Queue(query, args...)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range properties {
		if err := br.QueryRow().Scan(&properties[i].ID); err != nil {
			return fmt.Errorf("batch upsert %s: %w", properties[i].Slug, err)
		}
	}
	return nil
}

// GetByID returns a property by UUID.
func (r *PropertyRepo) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// selectActiveByIDs skips deactivated rows so wishlists and batch lookups
// never draw a listing the channel manager has withdrawn.
const selectActiveByIDs = `SELECT ` + propertyColumns + `
	FROM properties
	WHERE id::text = ANY($1) AND active`

// GetByIDs returns multiple active properties by UUID, in arbitrary order.
func (r *PropertyRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Pool.Query(ctx, selectActiveByIDs, ids)
	if err != nil {
		return nil, err
	}
	return collectProperties(rows)
}

// List returns active properties matching the filter. Rows come back in
// creation order so that identical catalog states render identical maps.
func (r *PropertyRepo) List(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	where, args := filterClause(f)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM properties
		WHERE %s
		ORDER BY created_at, id
		LIMIT $%d OFFSET $%d
	`, propertyColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	return collectProperties(rows)
}

// Count returns the number of active properties matching the filter.
func (r *PropertyRepo) Count(ctx context.Context, f domain.PropertyFilter) (int, error) {
	where, args := filterClause(f)
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM properties WHERE `+where, args...).Scan(&n)
	return n, err
}

// DeactivateMissing marks synced properties absent from keep as inactive.
func (r *PropertyRepo) DeactivateMissing(ctx context.Context, keep []string) ([]domain.PropertyRef, error) {
	rows, err := r.db.Pool.Query(ctx, `
		UPDATE properties
		SET active = false, updated_at = now()
		WHERE active
		  AND hospitable_id IS NOT NULL
		  AND NOT (hospitable_id = ANY($1))
		RETURNING id, COALESCE(city, '')
	`, keep)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []domain.PropertyRef
	for rows.Next() {
		var ref domain.PropertyRef
		if err := rows.Scan(&ref.ID, &ref.City); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func filterClause(f domain.PropertyFilter) (string, []any) {
	conds := []string{"active"}
	var args []any
	if f.City != "" {
		args = append(args, f.City)
		conds = append(conds, fmt.Sprintf("lower(city) = lower($%d)", len(args)))
	}
	if f.Bounds != nil {
		args = append(args, f.Bounds.MinLng, f.Bounds.MinLat, f.Bounds.MaxLng, f.Bounds.MaxLat)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"location && ST_MakeEnvelope($%d, $%d, $%d, $%d, 4326)::geography", n-3, n-2, n-1, n))
	}
	return strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(row scanner) (*domain.Property, error) {
	var (
		p        domain.Property
		lat, lng *float64
	)
	if err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Price, &p.Currency, &p.Bedrooms, &p.Guests,
		&p.City, &p.HostID, &p.HospitableID,
		&lat, &lng,
		&p.Active, &p.Metadata, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		p.Geolocation = &domain.GeoPoint{Lat: *lat, Lng: *lng}
	}
	return &p, nil
}

func collectProperties(rows pgx.Rows) ([]domain.Property, error) {
	defer rows.Close()

	var properties []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}
