package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/cashdesk/internal/model"
)

// SubmitCount сохраняет пересчёт оператора и переводит планиллу в Procesado или Discrepancia.
// При расхождении в той же транзакции создаются алерт и задача для группы дигитадоров.
// Строка планиллы блокируется, поэтому повторный пересчёт той же планиллы получает ErrCheckInNotPending.
func (r *PostgresRepository) SubmitCount(ctx context.Context, operatorID int64, sub model.CountSubmission) (*model.ReconcileResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		invoiceNumber string
		declaredCents int64
		status        string
	)
	err = tx.QueryRow(ctx,
		`SELECT invoice_number, declared_value, status FROM check_ins WHERE id = $1 FOR UPDATE`,
		sub.CheckInID,
	).Scan(&invoiceNumber, &declaredCents, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCheckInNotFound
		}
		return nil, fmt.Errorf("lock check-in: %w", err)
	}

	if model.CheckInStatus(status) != model.CheckInStatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrCheckInNotPending, invoiceNumber, status)
	}

	// Статус, сохранённое расхождение и текст алерта считаются от одной суммы в сентаво.
	totalCents := model.PesosToCents(sub.TotalCounted)
	discrepancyCents := totalCents - declaredCents
	discrepancy := model.CentsToPesos(discrepancyCents)
	if sub.Discrepancy != nil && model.PesosToCents(*sub.Discrepancy) != discrepancyCents {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrDiscrepancyMismatch, sub.Discrepancy.String(), discrepancy.String())
	}

	var countID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO operator_counts
		   (check_in_id, operator_id, bills_100k, bills_50k, bills_20k, bills_10k, bills_5k, bills_2k,
		    coins, total_counted, discrepancy, observations)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		sub.CheckInID, operatorID,
		sub.Bills100k, sub.Bills50k, sub.Bills20k, sub.Bills10k, sub.Bills5k, sub.Bills2k,
		model.PesosToCents(sub.Coins), totalCents, discrepancyCents,
		sub.Observations,
	).Scan(&countID)
	if err != nil {
		// Планилла уже заблокирована выше, так что нарушить внешний ключ может только оператор.
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: operator %d", ErrUserNotFound, operatorID)
		}
		return nil, fmt.Errorf("insert operator count: %w", err)
	}

	newStatus := model.StatusForDiscrepancy(discrepancy)
	cmdTag, err := tx.Exec(ctx,
		`UPDATE check_ins SET status = $1 WHERE id = $2 AND status = $3`,
		string(newStatus), sub.CheckInID, string(model.CheckInStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("update check-in status: %w", err)
	}
	if cmdTag.RowsAffected() != 1 {
		return nil, fmt.Errorf("%w: %s", ErrCheckInNotPending, invoiceNumber)
	}

	res := &model.ReconcileResult{
		OperatorCountID: countID,
		InvoiceNumber:   invoiceNumber,
		Status:          newStatus,
		Discrepancy:     discrepancy,
	}

	if !discrepancy.IsZero() {
		alertID, taskID, err := createFollowUp(ctx, tx, sub.CheckInID, invoiceNumber, discrepancy, operatorID)
		if err != nil {
			return nil, err
		}
		res.AlertID = &alertID
		res.TaskID = &taskID
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return res, nil
}

func createFollowUp(ctx context.Context, tx pgx.Tx, checkInID int64, invoiceNumber string, discrepancy decimal.Decimal, operatorID int64) (int64, int64, error) {
	alert := model.NewDiscrepancyAlert(checkInID, invoiceNumber, discrepancy)

	var alertID int64
	err := tx.QueryRow(ctx,
		`INSERT INTO alerts (title, description, priority, status, suggested_role, check_in_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		alert.Title, alert.Description, string(alert.Priority), string(alert.Status),
		string(alert.SuggestedRole), alert.CheckInID,
	).Scan(&alertID)
	if err != nil {
		return 0, 0, fmt.Errorf("insert alert: %w", err)
	}

	task := model.NewFollowUpTask(alertID, invoiceNumber, operatorID)

	var taskID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO tasks (alert_id, assigned_to_group, instruction, type, status, priority, created_by_user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		task.AlertID, string(task.AssignedGroup), task.Instruction, string(task.Type),
		string(task.Status), string(task.Priority), task.CreatedByUserID,
	).Scan(&taskID)
	if err != nil {
		return 0, 0, fmt.Errorf("insert task: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE alerts SET status = $1 WHERE id = $2`,
		string(model.AlertStatusAssigned), alertID,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("assign alert: %w", err)
	}

	return alertID, taskID, nil
}
