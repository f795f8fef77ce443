package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/cashdesk/internal/model"
)

const historyBaseQuery = `SELECT oc.created_at, ci.invoice_number, c.name,
       oc.operator_id, u_op.name,
       ci.closed_by_digitizer_id, u_dig.name,
       oc.total_counted, ci.status, ci.digitizer_status
FROM operator_counts oc
JOIN check_ins ci ON oc.check_in_id = ci.id
JOIN clients c ON ci.client_id = c.id
JOIN users u_op ON oc.operator_id = u_op.id
LEFT JOIN users u_dig ON ci.closed_by_digitizer_id = u_dig.id`

// buildHistoryQuery собирает запрос истории с позиционными параметрами для заданных фильтров.
func buildHistoryQuery(f model.HistoryFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	if f.StartDate != nil {
		args = append(args, truncateToDate(*f.StartDate))
		where = append(where, fmt.Sprintf("oc.created_at::date >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, truncateToDate(*f.EndDate))
		where = append(where, fmt.Sprintf("oc.created_at::date <= $%d", len(args)))
	}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		n := len(args)
		where = append(where, fmt.Sprintf("(oc.operator_id = $%d OR ci.closed_by_digitizer_id = $%d)", n, n))
	}

	var sb strings.Builder
	sb.WriteString(historyBaseQuery)
	if len(where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString("\nORDER BY oc.created_at DESC")

	return sb.String(), args
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GetHistory возвращает пересчёты с данными планиллы, клиента, оператора и дигитадора.
func (r *PostgresRepository) GetHistory(ctx context.Context, f model.HistoryFilter) ([]model.HistoryRow, error) {
	query, args := buildHistoryQuery(f)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var res []model.HistoryRow
	for rows.Next() {
		var (
			row             model.HistoryRow
			totalCents      int64
			status          string
			digitizerStatus *string
		)
		if err := rows.Scan(&row.CreatedAt, &row.InvoiceNumber, &row.ClientName,
			&row.OperatorID, &row.OperatorName,
			&row.DigitizerID, &row.DigitizerName,
			&totalCents, &status, &digitizerStatus); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		row.TotalCounted = model.CentsToPesos(totalCents)
		row.FinalStatus = model.ResolveDisplayStatus(status, digitizerStatus)
		res = append(res, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
