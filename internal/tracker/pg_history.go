package tracker

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"pricewatch/internal/models"
)

const pgHistorySchema = `
CREATE TABLE IF NOT EXISTS price_points (
	product_id  TEXT        NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	price_minor BIGINT      NOT NULL,
	currency    TEXT        NOT NULL,
	PRIMARY KEY (product_id, observed_at)
)`

// PgHistoryStore keeps the price series in Postgres. The primary key on
// (product_id, observed_at) plus ON CONFLICT DO NOTHING gives first-write-
// wins idempotency at the database level, so concurrent engine instances
// can share one history.
type PgHistoryStore struct {
	pool *pgxpool.Pool
}

func NewPgHistoryStore(ctx context.Context, dsn string) (*PgHistoryStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgHistorySchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &PgHistoryStore{pool: pool}, nil
}

func (s *PgHistoryStore) Close() {
	s.pool.Close()
}

func (s *PgHistoryStore) Append(ctx context.Context, point models.PricePoint) (models.AppendResult, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO price_points (product_id, observed_at, price_minor, currency)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (product_id, observed_at) DO NOTHING`,
		point.ProductID, point.ObservedAt, point.PriceMinor, point.Currency)
	if err != nil {
		return models.AppendConflict, err
	}
	if tag.RowsAffected() > 0 {
		return models.AppendInserted, nil
	}

	// Row already there: distinguish a replayed write from a conflicting
	// one.
	var price int64
	var currency string
	err = s.pool.QueryRow(ctx,
		`SELECT price_minor, currency FROM price_points WHERE product_id = $1 AND observed_at = $2`,
		point.ProductID, point.ObservedAt).Scan(&price, &currency)
	if err != nil {
		return models.AppendConflict, err
	}
	if price == point.PriceMinor && currency == point.Currency {
		return models.AppendDuplicate, nil
	}
	return models.AppendConflict, nil
}

func (s *PgHistoryStore) Latest(ctx context.Context, productID string) (models.PricePoint, bool, error) {
	var point models.PricePoint
	point.ProductID = productID
	err := s.pool.QueryRow(ctx,
		`SELECT observed_at, price_minor, currency FROM price_points
		 WHERE product_id = $1 ORDER BY observed_at DESC LIMIT 1`,
		productID).Scan(&point.ObservedAt, &point.PriceMinor, &point.Currency)
	if err == pgx.ErrNoRows {
		return models.PricePoint{}, false, nil
	}
	if err != nil {
		return models.PricePoint{}, false, err
	}
	return point, true, nil
}

func (s *PgHistoryStore) Range(ctx context.Context, productID string, from, to time.Time) ([]models.PricePoint, error) {
	query := `SELECT observed_at, price_minor, currency FROM price_points WHERE product_id = $1`
	args := []interface{}{productID}
	if !from.IsZero() {
		args = append(args, from)
		query += ` AND observed_at >= $2`
	}
	if !to.IsZero() {
		args = append(args, to)
		if len(args) == 3 {
			query += ` AND observed_at <= $3`
		} else {
			query += ` AND observed_at <= $2`
		}
	}
	query += ` ORDER BY observed_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		point := models.PricePoint{ProductID: productID}
		if err := rows.Scan(&point.ObservedAt, &point.PriceMinor, &point.Currency); err != nil {
			return nil, err
		}
		out = append(out, point)
	}
	return out, rows.Err()
}
