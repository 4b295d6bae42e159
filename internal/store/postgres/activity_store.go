package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alphavault/fundd/internal/domain"
)

// ActivityStore implements domain.ActivityStore using PostgreSQL.
// Big integer amounts are stored as NUMERIC(78,0), wide enough for any
// uint256 value, and round-tripped through decimal strings.
type ActivityStore struct {
	pool *pgxpool.Pool
}

// NewActivityStore creates a new ActivityStore backed by the given
// connection pool.
func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

const activitySelectCols = `id, kind, holder, amount::text, shares::text,
	share_price_before::text, share_price_after::text, detail, created_at`

func scanActivityRow(row pgx.Row) (domain.ActivityRecord, error) {
	var rec domain.ActivityRecord
	var kind, holder string
	var amount, shares, priceBefore, priceAfter *string
	var detailJSON []byte

	err := row.Scan(
		&rec.ID, &kind, &holder,
		&amount, &shares, &priceBefore, &priceAfter,
		&detailJSON, &rec.CreatedAt,
	)
	if err != nil {
		return domain.ActivityRecord{}, err
	}

	rec.Kind = domain.ActivityKind(kind)
	rec.Holder = common.HexToAddress(holder)
	if rec.Amount, err = parseNumeric(amount); err != nil {
		return domain.ActivityRecord{}, err
	}
	if rec.Shares, err = parseNumeric(shares); err != nil {
		return domain.ActivityRecord{}, err
	}
	if rec.SharePriceBefore, err = parseNumeric(priceBefore); err != nil {
		return domain.ActivityRecord{}, err
	}
	if rec.SharePriceAfter, err = parseNumeric(priceAfter); err != nil {
		return domain.ActivityRecord{}, err
	}
	if detailJSON != nil {
		if err := json.Unmarshal(detailJSON, &rec.Detail); err != nil {
			return domain.ActivityRecord{}, fmt.Errorf("unmarshal activity detail: %w", err)
		}
	}
	return rec, nil
}

func scanActivityRows(rows pgx.Rows) ([]domain.ActivityRecord, error) {
	var records []domain.ActivityRecord
	for rows.Next() {
		rec, err := scanActivityRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// parseNumeric converts a nullable NUMERIC text column to *big.Int.
func parseNumeric(s *string) (*big.Int, error) {
	if s == nil {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", *s)
	}
	return v, nil
}

// numericArg converts a nullable *big.Int to a value pgx can bind to a
// NUMERIC column.
func numericArg(v *big.Int) any {
	if v == nil {
		return nil
	}
	return v.String()
}

// Insert appends a new activity record.
func (s *ActivityStore) Insert(ctx context.Context, rec domain.ActivityRecord) error {
	detailJSON, err := json.Marshal(rec.Detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal activity detail: %w", err)
	}

	const query = `
		INSERT INTO activity (
			id, kind, holder, amount, shares,
			share_price_before, share_price_after, detail, created_at
		) VALUES (
			$1, $2, $3, $4::numeric, $5::numeric,
			$6::numeric, $7::numeric, $8, $9
		)`

	_, err = s.pool.Exec(ctx, query,
		rec.ID, string(rec.Kind), rec.Holder.Hex(),
		numericArg(rec.Amount), numericArg(rec.Shares),
		numericArg(rec.SharePriceBefore), numericArg(rec.SharePriceAfter),
		detailJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert activity %s: %w", rec.ID, err)
	}
	return nil
}

// GetByID retrieves a single activity record.
func (s *ActivityStore) GetByID(ctx context.Context, id string) (domain.ActivityRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+activitySelectCols+` FROM activity WHERE id = $1`, id)

	rec, err := scanActivityRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ActivityRecord{}, domain.ErrNotFound
		}
		return domain.ActivityRecord{}, fmt.Errorf("postgres: get activity %s: %w", id, err)
	}
	return rec, nil
}

// ListByHolder returns activity for one holder with pagination and
// optional time filtering.
func (s *ActivityStore) ListByHolder(ctx context.Context, holder common.Address, opts domain.ListOpts) ([]domain.ActivityRecord, error) {
	query := `SELECT ` + activitySelectCols + ` FROM activity WHERE holder = $1`
	args := []any{holder.Hex()}
	argIdx := 2

	query, args = appendListOpts(query, args, argIdx, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activity by holder: %w", err)
	}
	defer rows.Close()

	records, err := scanActivityRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan activity by holder: %w", err)
	}
	return records, nil
}

// List returns activity records with pagination and optional time
// filtering.
func (s *ActivityStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.ActivityRecord, error) {
	query := `SELECT ` + activitySelectCols + ` FROM activity WHERE 1=1`
	args := []any{}

	query, args = appendListOpts(query, args, 1, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activity: %w", err)
	}
	defer rows.Close()

	records, err := scanActivityRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan activity: %w", err)
	}
	return records, nil
}

// ListBefore returns all activity created strictly before the cutoff,
// oldest first. Used by the archiver.
func (s *ActivityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ActivityRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+activitySelectCols+` FROM activity
		 WHERE created_at < $1
		 ORDER BY created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activity before: %w", err)
	}
	defer rows.Close()

	records, err := scanActivityRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan activity before: %w", err)
	}
	return records, nil
}

// DeleteBefore removes activity created strictly before the cutoff. It is
// a separate, explicit step executed only after an archive has been
// verified.
func (s *ActivityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM activity WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete activity before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// appendListOpts appends the shared time-filter/pagination clauses.
func appendListOpts(query string, args []any, argIdx int, opts domain.ListOpts) (string, []any) {
	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return query, args
}

// Compile-time interface check.
var _ domain.ActivityStore = (*ActivityStore)(nil)
