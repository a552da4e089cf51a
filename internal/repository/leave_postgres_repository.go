package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-tools/internal/models"
)

const leaveSchema = `
CREATE TABLE IF NOT EXISTS leave_accounts (
	employee_id TEXT PRIMARY KEY,
	balance INTEGER NOT NULL CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS leave_history (
	id BIGSERIAL PRIMARY KEY,
	employee_id TEXT NOT NULL REFERENCES leave_accounts (employee_id),
	leave_date TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS leave_history_employee_idx ON leave_history (employee_id, id);
`

const (
	selectLeaveAccount          = `SELECT employee_id, balance FROM leave_accounts WHERE employee_id = $1`
	selectLeaveAccountForUpdate = selectLeaveAccount + ` FOR UPDATE`
	selectLeaveHistory          = `SELECT leave_date FROM leave_history WHERE employee_id = $1 ORDER BY id`
	updateLeaveBalance          = `UPDATE leave_accounts SET balance = balance - $1 WHERE employee_id = $2`
	insertLeaveHistory          = `INSERT INTO leave_history (employee_id, leave_date) SELECT $1, d FROM unnest($2::text[]) WITH ORDINALITY AS t(d, n) ORDER BY n`
	insertLeaveAccount          = `INSERT INTO leave_accounts (employee_id, balance) VALUES ($1, $2) ON CONFLICT (employee_id) DO NOTHING`
)

// PostgresLeaveRepository persists leave accounts in PostgreSQL. Apply locks the account
// row for the duration of the transaction.
type PostgresLeaveRepository struct {
	db *sqlx.DB
}

// NewPostgresLeaveRepository constructs a PostgreSQL-backed repository.
func NewPostgresLeaveRepository(db *sqlx.DB) *PostgresLeaveRepository {
	return &PostgresLeaveRepository{db: db}
}

// EnsureSchema creates the leave tables when missing.
func (r *PostgresLeaveRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, leaveSchema); err != nil {
		return fmt.Errorf("create leave schema: %w", err)
	}
	return nil
}

// Find loads the account and its ordered history.
func (r *PostgresLeaveRepository) Find(ctx context.Context, employeeID string) (*models.LeaveAccount, error) {
	var account models.LeaveAccount
	if err := r.db.GetContext(ctx, &account, selectLeaveAccount, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeaveAccountNotFound
		}
		return nil, fmt.Errorf("get leave account: %w", err)
	}

	history := []string{}
	if err := r.db.SelectContext(ctx, &history, selectLeaveHistory, employeeID); err != nil {
		return nil, fmt.Errorf("list leave history: %w", err)
	}
	account.History = history
	return &account, nil
}

// Apply books all dates or none inside one transaction.
func (r *PostgresLeaveRepository) Apply(ctx context.Context, employeeID string, dates []string) (result *models.LeaveAccount, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin apply leave: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var account models.LeaveAccount
	if err = tx.GetContext(ctx, &account, selectLeaveAccountForUpdate, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrLeaveAccountNotFound
			return nil, err
		}
		return nil, fmt.Errorf("lock leave account: %w", err)
	}

	if len(dates) > account.Balance {
		err = &InsufficientBalanceError{Requested: len(dates), Available: account.Balance}
		return nil, err
	}

	if len(dates) > 0 {
		if _, err = tx.ExecContext(ctx, updateLeaveBalance, len(dates), employeeID); err != nil {
			return nil, fmt.Errorf("update leave balance: %w", err)
		}
		if _, err = tx.ExecContext(ctx, insertLeaveHistory, employeeID, pq.Array(dates)); err != nil {
			return nil, fmt.Errorf("insert leave history: %w", err)
		}
	}

	history := []string{}
	if err = tx.SelectContext(ctx, &history, selectLeaveHistory, employeeID); err != nil {
		return nil, fmt.Errorf("list leave history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit apply leave: %w", err)
	}

	account.Balance -= len(dates)
	account.History = history
	return &account, nil
}

// Seed inserts accounts that do not exist yet, together with their history.
func (r *PostgresLeaveRepository) Seed(ctx context.Context, accounts []models.LeaveAccount) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed leave: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, account := range accounts {
		res, execErr := tx.ExecContext(ctx, insertLeaveAccount, account.EmployeeID, account.Balance)
		if execErr != nil {
			err = fmt.Errorf("seed leave account %s: %w", account.EmployeeID, execErr)
			return err
		}
		inserted, _ := res.RowsAffected()
		if inserted == 0 || len(account.History) == 0 {
			continue
		}
		if _, err = tx.ExecContext(ctx, insertLeaveHistory, account.EmployeeID, pq.Array(account.History)); err != nil {
			return fmt.Errorf("seed leave history %s: %w", account.EmployeeID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed leave: %w", err)
	}
	return nil
}
