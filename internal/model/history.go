package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryQuery содержит фильтры истории в том виде, в каком они пришли в запросе.
type HistoryQuery struct {
	StartDate string
	EndDate   string
	UserID    string
}

// HistoryFilter задаёт необязательные фильтры истории пересчётов.
type HistoryFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	UserID    *int64
}

// HistoryRow описывает одну запись истории пересчётов.
type HistoryRow struct {
	CreatedAt     time.Time
	InvoiceNumber string
	ClientName    string
	OperatorID    int64
	OperatorName  string
	DigitizerID   *int64
	DigitizerName *string
	TotalCounted  decimal.Decimal
	FinalStatus   string
}

// UserTotal содержит сумму и количество пересчётов одного пользователя.
type UserTotal struct {
	UserID int64
	Name   string
	Total  decimal.Decimal
	Count  int
}

// HistoryStats содержит агрегаты по выборке истории.
type HistoryStats struct {
	TotalAmount decimal.Decimal
	TotalRows   int
	ByOperator  []UserTotal
	ByDigitizer []UserTotal
}

// HistoryReport объединяет строки истории и статистику по ним.
type HistoryReport struct {
	Rows  []HistoryRow
	Stats HistoryStats
}

// ResolveDisplayStatus вычисляет отображаемый статус планиллы.
// Закрытие дигитадором имеет приоритет над статусом самой планиллы
// (Procesado, Faltante, Pendiente и любые другие значения отдаются как есть).
func ResolveDisplayStatus(status string, digitizerStatus *string) string {
	if digitizerStatus != nil && *digitizerStatus == string(CheckInStatusClosed) {
		return string(CheckInStatusClosed)
	}
	return status
}
