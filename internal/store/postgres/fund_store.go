package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alphavault/fundd/internal/domain"
)

// FundStore implements domain.FundStore using PostgreSQL.
type FundStore struct {
	pool *pgxpool.Pool
}

// NewFundStore creates a new FundStore backed by the given connection pool.
func NewFundStore(pool *pgxpool.Pool) *FundStore {
	return &FundStore{pool: pool}
}

const fundSelectCols = `id, name, symbol, creator, operator, fee_recipient,
	management_fee_bps, performance_fee_bps, created_at`

func scanFundRow(row pgx.Row) (domain.FundRecord, error) {
	var rec domain.FundRecord
	var creator, operator, feeRecipient string

	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Symbol,
		&creator, &operator, &feeRecipient,
		&rec.ManagementFeeBps, &rec.PerformanceFeeBps,
		&rec.CreatedAt,
	)
	if err != nil {
		return domain.FundRecord{}, err
	}
	rec.Creator = common.HexToAddress(creator)
	rec.Operator = common.HexToAddress(operator)
	rec.FeeRecipient = common.HexToAddress(feeRecipient)
	return rec, nil
}

func scanFundRows(rows pgx.Rows) ([]domain.FundRecord, error) {
	var records []domain.FundRecord
	for rows.Next() {
		rec, err := scanFundRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Create inserts a new fund registry record.
func (s *FundStore) Create(ctx context.Context, rec domain.FundRecord) error {
	const query = `
		INSERT INTO funds (
			id, name, symbol, creator, operator, fee_recipient,
			management_fee_bps, performance_fee_bps, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9
		)
		ON CONFLICT (id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Name, rec.Symbol,
		rec.Creator.Hex(), rec.Operator.Hex(), rec.FeeRecipient.Hex(),
		rec.ManagementFeeBps, rec.PerformanceFeeBps,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create fund %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// GetByID retrieves a single fund record by its ID.
func (s *FundStore) GetByID(ctx context.Context, id string) (domain.FundRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+fundSelectCols+` FROM funds WHERE id = $1`, id)

	rec, err := scanFundRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.FundRecord{}, domain.ErrNotFound
		}
		return domain.FundRecord{}, fmt.Errorf("postgres: get fund %s: %w", id, err)
	}
	return rec, nil
}

// GetBySymbol retrieves a fund record by its ticker symbol.
func (s *FundStore) GetBySymbol(ctx context.Context, symbol string) (domain.FundRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+fundSelectCols+` FROM funds WHERE symbol = $1`, symbol)

	rec, err := scanFundRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.FundRecord{}, domain.ErrNotFound
		}
		return domain.FundRecord{}, fmt.Errorf("postgres: get fund by symbol %s: %w", symbol, err)
	}
	return rec, nil
}

// ListByCreator returns all funds registered by the given creator address.
func (s *FundStore) ListByCreator(ctx context.Context, creator common.Address) ([]domain.FundRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+fundSelectCols+` FROM funds
		 WHERE creator = $1
		 ORDER BY created_at DESC`, creator.Hex())
	if err != nil {
		return nil, fmt.Errorf("postgres: list funds by creator: %w", err)
	}
	defer rows.Close()

	records, err := scanFundRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan funds by creator: %w", err)
	}
	return records, nil
}

// List returns fund records with pagination and optional time filtering.
func (s *FundStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.FundRecord, error) {
	query := `SELECT ` + fundSelectCols + ` FROM funds WHERE 1=1`
	args := []any{}
	argIdx := 1

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

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list funds: %w", err)
	}
	defer rows.Close()

	records, err := scanFundRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan funds: %w", err)
	}
	return records, nil
}

// Compile-time interface check.
var _ domain.FundStore = (*FundStore)(nil)
