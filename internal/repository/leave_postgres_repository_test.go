package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-tools/internal/models"
)

func newLeaveMock(t *testing.T) (*PostgresLeaveRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresLeaveRepository(sqlx.NewDb(db, "sqlmock")), mock, func() {
		db.Close()
	}
}

func TestPostgresFind(t *testing.T) {
	repo, mock, cleanup := newLeaveMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectLeaveAccount)).
		WithArgs("E001").
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "balance"}).AddRow("E001", 18))
	mock.ExpectQuery(regexp.QuoteMeta(selectLeaveHistory)).
		WithArgs("E001").
		WillReturnRows(sqlmock.NewRows([]string{"leave_date"}).AddRow("2024-12-25").AddRow("2025-01-01"))

	account, err := repo.Find(context.Background(), "E001")
	require.NoError(t, err)
	assert.Equal(t, 18, account.Balance)
	assert.Equal(t, []string{"2024-12-25", "2025-01-01"}, account.History)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindNotFound(t *testing.T) {
	repo, mock, cleanup := newLeaveMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectLeaveAccount)).
		WithArgs("E404").
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "balance"}))

	_, err := repo.Find(context.Background(), "E404")
	assert.ErrorIs(t, err, ErrLeaveAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApply(t *testing.T) {
	repo, mock, cleanup := newLeaveMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectLeaveAccountForUpdate)).
		WithArgs("E001").
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "balance"}).AddRow("E001", 18))
	mock.ExpectExec(regexp.QuoteMeta(updateLeaveBalance)).
		WithArgs(2, "E001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertLeaveHistory)).
		WithArgs("E001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(selectLeaveHistory)).
		WithArgs("E001").
		WillReturnRows(sqlmock.NewRows([]string{"leave_date"}).
			AddRow("2024-12-25").AddRow("2025-01-01").AddRow("2025-04-17").AddRow("2025-04-18"))
	mock.ExpectCommit()

	account, err := repo.Apply(context.Background(), "E001", []string{"2025-04-17", "2025-04-18"})
	require.NoError(t, err)
	assert.Equal(t, 16, account.Balance)
	assert.Equal(t, []string{"2024-12-25", "2025-01-01", "2025-04-17", "2025-04-18"}, account.History)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyInsufficientRollsBack(t *testing.T) {
	repo, mock, cleanup := newLeaveMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectLeaveAccountForUpdate)).
		WithArgs("E002").
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "balance"}).AddRow("E002", 1))
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), "E002", []string{"2025-04-17", "2025-04-18"})
	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 2, insufficient.Requested)
	assert.Equal(t, 1, insufficient.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyEmptySkipsWrites(t *testing.T) {
	repo, mock, cleanup := newLeaveMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectLeaveAccountForUpdate)).
		WithArgs("E002").
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "balance"}).AddRow("E002", 20))
	mock.ExpectQuery(regexp.QuoteMeta(selectLeaveHistory)).
		WithArgs("E002").
		WillReturnRows(sqlmock.NewRows([]string{"leave_date"}))
	mock.ExpectCommit()

	account, err := repo.Apply(context.Background(), "E002", nil)
	require.NoError(t, err)
	assert.Equal(t, 20, account.Balance)
	assert.Empty(t, account.History)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyNotFound(t *testing.T) {
	repo, mock, cleanup := newLeaveMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectLeaveAccountForUpdate)).
		WithArgs("E404").
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "balance"}))
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), "E404", []string{"2025-04-17"})
	assert.ErrorIs(t, err, ErrLeaveAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSeed(t *testing.T) {
	repo, mock, cleanup := newLeaveMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertLeaveAccount)).
		WithArgs("E001", 18).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertLeaveHistory)).
		WithArgs("E001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(insertLeaveAccount)).
		WithArgs("E002", 20).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.Seed(context.Background(), models.DefaultLeaveAccounts()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnsureSchema(t *testing.T) {
	repo, mock, cleanup := newLeaveMock(t)
	defer cleanup()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS leave_accounts").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
