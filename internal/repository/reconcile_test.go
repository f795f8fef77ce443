package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/cashdesk/internal/model"
)

var (
	lockCheckInSQL    = regexp.QuoteMeta(`SELECT invoice_number, declared_value, status FROM check_ins WHERE id = $1 FOR UPDATE`)
	insertCountSQL    = regexp.QuoteMeta(`INSERT INTO operator_counts`)
	updateCheckInSQL  = regexp.QuoteMeta(`UPDATE check_ins SET status = $1 WHERE id = $2 AND status = $3`)
	insertAlertSQL    = regexp.QuoteMeta(`INSERT INTO alerts`)
	insertTaskSQL     = regexp.QuoteMeta(`INSERT INTO tasks`)
	assignAlertSQL    = regexp.QuoteMeta(`UPDATE alerts SET status = $1 WHERE id = $2`)
	testCheckInID     = int64(10)
	testOperatorID    = int64(3)
	testInvoiceNumber = "PL-001"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, NewWithDB(mock)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

// submission на 241 000 песо купюрами без монет.
func submission() model.CountSubmission {
	return model.CountSubmission{
		CheckInID:    testCheckInID,
		Bills100k:    1,
		Bills50k:     2,
		Bills20k:     1,
		Bills10k:     1,
		Bills5k:      1,
		Bills2k:      3,
		Coins:        decimal.Zero,
		TotalCounted: decimal.NewFromInt(241000),
		Observations: "bolsa con sello roto",
	}
}

func expectLock(mock pgxmock.PgxPoolIface, declaredCents int64, status string) {
	mock.ExpectQuery(lockCheckInSQL).
		WithArgs(testCheckInID).
		WillReturnRows(pgxmock.NewRows([]string{"invoice_number", "declared_value", "status"}).
			AddRow(testInvoiceNumber, declaredCents, status))
}

func expectInsertCount(mock pgxmock.PgxPoolIface, discrepancyCents int64) {
	mock.ExpectQuery(insertCountSQL).
		WithArgs(testCheckInID, testOperatorID,
			int64(1), int64(2), int64(1), int64(1), int64(1), int64(3),
			int64(0), int64(24100000), discrepancyCents, "bolsa con sello roto").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100)))
}

func TestSubmitCount_Balanced(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	expectLock(mock, 24100000, "Pendiente")
	expectInsertCount(mock, 0)
	mock.ExpectExec(updateCheckInSQL).
		WithArgs("Procesado", testCheckInID, "Pendiente").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	res, err := repo.SubmitCount(context.Background(), testOperatorID, submission())
	require.NoError(t, err)

	assert.Equal(t, int64(100), res.OperatorCountID)
	assert.Equal(t, model.CheckInStatusProcessed, res.Status)
	assert.True(t, res.Discrepancy.IsZero())
	assert.Nil(t, res.AlertID)
	assert.Nil(t, res.TaskID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCount_DiscrepancyCreatesAlertAndTask(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	expectLock(mock, 24600000, "Pendiente")
	expectInsertCount(mock, -500000)
	mock.ExpectExec(updateCheckInSQL).
		WithArgs("Discrepancia", testCheckInID, "Pendiente").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(insertAlertSQL).
		WithArgs("Discrepancia en Planilla: PL-001", "Diferencia de $-5.000. Requiere revisión y seguimiento.",
			"Critica", "Pendiente", "Digitador", testCheckInID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(insertTaskSQL).
		WithArgs(int64(7), "Digitador", pgxmock.AnyArg(), "Asignacion", "Pendiente", "Critica", testOperatorID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectExec(assignAlertSQL).
		WithArgs("Asignada", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	res, err := repo.SubmitCount(context.Background(), testOperatorID, submission())
	require.NoError(t, err)

	assert.Equal(t, model.CheckInStatusDiscrepancy, res.Status)
	assert.True(t, res.Discrepancy.Equal(decimal.NewFromInt(-5000)), "got %s", res.Discrepancy)
	require.NotNil(t, res.AlertID)
	require.NotNil(t, res.TaskID)
	assert.Equal(t, int64(7), *res.AlertID)
	assert.Equal(t, int64(8), *res.TaskID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCount_TaskFailureRollsBack(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	expectLock(mock, 24600000, "Pendiente")
	expectInsertCount(mock, -500000)
	mock.ExpectExec(updateCheckInSQL).
		WithArgs("Discrepancia", testCheckInID, "Pendiente").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(insertAlertSQL).
		WithArgs(anyArgs(6)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(insertTaskSQL).
		WithArgs(anyArgs(7)...).
		WillReturnError(errors.New("tasks table is read-only"))
	mock.ExpectRollback()

	res, err := repo.SubmitCount(context.Background(), testOperatorID, submission())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "insert task")
	// Commit не ожидался: пересчёт и смена статуса откатываются вместе с задачей.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCount_NotPending(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	expectLock(mock, 24100000, "Procesado")
	mock.ExpectRollback()

	_, err := repo.SubmitCount(context.Background(), testOperatorID, submission())
	assert.ErrorIs(t, err, ErrCheckInNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCount_CheckInNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockCheckInSQL).
		WithArgs(testCheckInID).
		WillReturnRows(pgxmock.NewRows([]string{"invoice_number", "declared_value", "status"}))
	mock.ExpectRollback()

	_, err := repo.SubmitCount(context.Background(), testOperatorID, submission())
	assert.ErrorIs(t, err, ErrCheckInNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCount_LostRace(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	expectLock(mock, 24100000, "Pendiente")
	expectInsertCount(mock, 0)
	mock.ExpectExec(updateCheckInSQL).
		WithArgs("Procesado", testCheckInID, "Pendiente").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := repo.SubmitCount(context.Background(), testOperatorID, submission())
	assert.ErrorIs(t, err, ErrCheckInNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCount_DiscrepancyMismatch(t *testing.T) {
	mock, repo := newMockRepo(t)

	sub := submission()
	wrong := decimal.NewFromInt(-4000)
	sub.Discrepancy = &wrong

	mock.ExpectBegin()
	expectLock(mock, 24600000, "Pendiente")
	mock.ExpectRollback()

	_, err := repo.SubmitCount(context.Background(), testOperatorID, sub)
	assert.ErrorIs(t, err, ErrDiscrepancyMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCount_MatchingSuppliedDiscrepancy(t *testing.T) {
	mock, repo := newMockRepo(t)

	sub := submission()
	zero := decimal.RequireFromString("0.00")
	sub.Discrepancy = &zero

	mock.ExpectBegin()
	expectLock(mock, 24100000, "Pendiente")
	expectInsertCount(mock, 0)
	mock.ExpectExec(updateCheckInSQL).
		WithArgs("Procesado", testCheckInID, "Pendiente").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	res, err := repo.SubmitCount(context.Background(), testOperatorID, sub)
	require.NoError(t, err)
	assert.Equal(t, model.CheckInStatusProcessed, res.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCount_UnknownOperator(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	expectLock(mock, 24100000, "Pendiente")
	mock.ExpectQuery(insertCountSQL).
		WithArgs(anyArgs(12)...).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})
	mock.ExpectRollback()

	_, err := repo.SubmitCount(context.Background(), testOperatorID, submission())
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCount_CentAmounts(t *testing.T) {
	mock, repo := newMockRepo(t)

	sub := submission()
	sub.Coins = decimal.RequireFromString("0.50")
	sub.TotalCounted = decimal.RequireFromString("241000.50")

	mock.ExpectBegin()
	expectLock(mock, 24100050, "Pendiente")
	mock.ExpectQuery(insertCountSQL).
		WithArgs(testCheckInID, testOperatorID,
			int64(1), int64(2), int64(1), int64(1), int64(1), int64(3),
			int64(50), int64(24100050), int64(0), "bolsa con sello roto").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectExec(updateCheckInSQL).
		WithArgs("Procesado", testCheckInID, "Pendiente").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	res, err := repo.SubmitCount(context.Background(), testOperatorID, sub)
	require.NoError(t, err)

	assert.Equal(t, model.CheckInStatusProcessed, res.Status)
	assert.True(t, res.Discrepancy.IsZero())
	assert.Nil(t, res.AlertID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
