package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/cashdesk/internal/model"
)

// minStatusLength: длина самого длинного статуса планиллы ("Discrepancia").
const minStatusLength = 12

type statusColumn struct {
	DataType  string
	UDTSchema string
	UDTName   string
	MaxLength *int32
}

// planStatusColumnFix возвращает DDL, после которого check_ins.status вмещает значение Discrepancia.
// Пустая строка означает, что колонка уже подходит.
func planStatusColumnFix(col statusColumn, enumLabels []string) string {
	const alterColumn = "ALTER TABLE check_ins ALTER COLUMN status TYPE VARCHAR(%d)"

	switch col.DataType {
	case "USER-DEFINED":
		if slices.Contains(enumLabels, string(model.CheckInStatusDiscrepancy)) {
			return ""
		}
		typeName := pgx.Identifier{col.UDTSchema, col.UDTName}.Sanitize()
		return fmt.Sprintf("ALTER TYPE %s ADD VALUE IF NOT EXISTS '%s'", typeName, model.CheckInStatusDiscrepancy)
	case "text":
		return ""
	case "character varying":
		if col.MaxLength == nil || *col.MaxLength >= minStatusLength {
			return ""
		}
		return fmt.Sprintf(alterColumn, minStatusLength)
	case "character":
		length := int32(minStatusLength)
		if col.MaxLength != nil && *col.MaxLength > length {
			length = *col.MaxLength
		}
		return fmt.Sprintf(alterColumn, length)
	default:
		return fmt.Sprintf(alterColumn+" USING status::text", 32)
	}
}

// EnsureStatusColumn проверяет, что колонка check_ins.status может хранить значение Discrepancia,
// и при необходимости расширяет её тип. Повторный вызов ничего не меняет.
// Возвращает true, если схема была изменена.
func (r *PostgresRepository) EnsureStatusColumn(ctx context.Context) (bool, error) {
	var col statusColumn
	err := r.db.QueryRow(ctx,
		`SELECT data_type::text, udt_schema::text, udt_name::text, character_maximum_length::int
		 FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = 'check_ins' AND column_name = 'status'`,
	).Scan(&col.DataType, &col.UDTSchema, &col.UDTName, &col.MaxLength)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, errors.New("column check_ins.status not found")
		}
		return false, fmt.Errorf("inspect status column: %w", err)
	}

	var labels []string
	if col.DataType == "USER-DEFINED" {
		labels, err = r.enumLabels(ctx, col.UDTSchema, col.UDTName)
		if err != nil {
			return false, err
		}
	}

	ddl := planStatusColumnFix(col, labels)
	if ddl == "" {
		return false, nil
	}

	if _, err := r.db.Exec(ctx, ddl); err != nil {
		return false, fmt.Errorf("alter status column: %w", err)
	}

	return true, nil
}

func (r *PostgresRepository) enumLabels(ctx context.Context, schema, name string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.enumlabel
		 FROM pg_enum e
		 JOIN pg_type t ON t.oid = e.enumtypid
		 JOIN pg_namespace n ON n.oid = t.typnamespace
		 WHERE n.nspname = $1 AND t.typname = $2
		 ORDER BY e.enumsortorder`,
		schema, name,
	)
	if err != nil {
		return nil, fmt.Errorf("select enum labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan enum label: %w", err)
		}
		labels = append(labels, label)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return labels, nil
}
