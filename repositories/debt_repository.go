package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/lib/pq"
)

var (
	ErrDebtNotFound      = errors.New("debt not found")
	ErrDebtPlayerInvalid = errors.New("debt player conflict or invalid")
)

type DebtRepository interface {
	// Increment adds `by` cakes to the debtor->creditor edge, creating the
	// edge when absent.
	Increment(ctx context.Context, exec SQLExecutor, debtorID, creditorID, by int) error
	GetByPair(ctx context.Context, debtorID, creditorID int) (*models.Debt, error)
	UpdateOutstanding(ctx context.Context, exec SQLExecutor, id, outstanding int) error
	ListByPlayer(ctx context.Context, playerID int) ([]*models.Debt, error)
	ListAll(ctx context.Context) ([]*models.Debt, error)
	DeleteAll(ctx context.Context, exec SQLExecutor) error
}

type postgresDebtRepository struct {
	db *sql.DB
}

func NewPostgresDebtRepository(db *sql.DB) DebtRepository {
	return &postgresDebtRepository{db: db}
}

func (r *postgresDebtRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresDebtRepository) Increment(ctx context.Context, exec SQLExecutor, debtorID, creditorID, by int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO debts (debtor_id, creditor_id, outstanding)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT debts_debtor_id_creditor_id_key
		DO UPDATE SET outstanding = debts.outstanding + EXCLUDED.outstanding`

	if _, err := executor.ExecContext(ctx, query, debtorID, creditorID, by); err != nil {
		return r.handleDebtError(err)
	}
	return nil
}

func (r *postgresDebtRepository) GetByPair(ctx context.Context, debtorID, creditorID int) (*models.Debt, error) {
	query := `
		SELECT id, debtor_id, creditor_id, outstanding
		FROM debts
		WHERE debtor_id = $1 AND creditor_id = $2`

	debt := &models.Debt{}
	err := r.db.QueryRowContext(ctx, query, debtorID, creditorID).Scan(
		&debt.ID,
		&debt.DebtorID,
		&debt.CreditorID,
		&debt.Outstanding,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDebtNotFound
		}
		return nil, fmt.Errorf("failed to scan debt %d->%d: %w", debtorID, creditorID, err)
	}
	return debt, nil
}

func (r *postgresDebtRepository) UpdateOutstanding(ctx context.Context, exec SQLExecutor, id, outstanding int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE debts SET outstanding = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, outstanding, id)
	if err != nil {
		return fmt.Errorf("failed to update debt %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrDebtNotFound)
}

func (r *postgresDebtRepository) ListByPlayer(ctx context.Context, playerID int) ([]*models.Debt, error) {
	query := `
		SELECT id, debtor_id, creditor_id, outstanding
		FROM debts
		WHERE debtor_id = $1 OR creditor_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query debts for player %d: %w", playerID, err)
	}
	defer rows.Close()

	return r.scanDebts(rows)
}

func (r *postgresDebtRepository) ListAll(ctx context.Context) ([]*models.Debt, error) {
	query := `
		SELECT id, debtor_id, creditor_id, outstanding
		FROM debts
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query debts: %w", err)
	}
	defer rows.Close()

	return r.scanDebts(rows)
}

func (r *postgresDebtRepository) scanDebts(rows *sql.Rows) ([]*models.Debt, error) {
	debts := make([]*models.Debt, 0)
	for rows.Next() {
		var debt models.Debt
		if scanErr := rows.Scan(
			&debt.ID,
			&debt.DebtorID,
			&debt.CreditorID,
			&debt.Outstanding,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan debt row: %w", scanErr)
		}
		debts = append(debts, &debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during debt rows iteration: %w", err)
	}
	return debts, nil
}

func (r *postgresDebtRepository) DeleteAll(ctx context.Context, exec SQLExecutor) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM debts`); err != nil {
		return fmt.Errorf("failed to delete debts: %w", err)
	}
	return nil
}

func (r *postgresDebtRepository) handleDebtError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "debts_debtor_id_fkey", "debts_creditor_id_fkey":
			return ErrDebtPlayerInvalid
		}
	}
	return err
}
