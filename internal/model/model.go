// Package model содержит доменные сущности сервиса сверки наличных.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя в системе.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleOperator  Role = "Operador"
	RoleDigitizer Role = "Digitador"
)

// Valid сообщает, известна ли роль системе.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleDigitizer:
		return true
	default:
		return false
	}
}

// OneOf сообщает, входит ли роль в перечисленный набор.
func (r Role) OneOf(roles ...Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Principal описывает аутентифицированного пользователя, от имени которого выполняется операция.
type Principal struct {
	UserID int64
	Role   Role
}

// User представляет учётную запись сотрудника.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	Name         string
	Email        string
	Role         Role
	CreatedAt    time.Time
}

// CheckInStatus описывает статус планиллы (ожидаемой сдачи наличных).
type CheckInStatus string

const (
	CheckInStatusPending     CheckInStatus = "Pendiente"
	CheckInStatusProcessed   CheckInStatus = "Procesado"
	CheckInStatusDiscrepancy CheckInStatus = "Discrepancia"
	CheckInStatusClosed      CheckInStatus = "Cerrado"
	CheckInStatusMissing     CheckInStatus = "Faltante"
)

// CheckIn описывает ожидаемую сдачу наличных по номеру планиллы.
type CheckIn struct {
	ID                  int64
	InvoiceNumber       string
	ClientID            int64
	ClientName          string
	SealNumber          string
	DeclaredValue       decimal.Decimal
	Status              CheckInStatus
	DigitizerStatus     *string
	ClosedByDigitizerID *int64
	CreatedAt           time.Time
}

// OperatorCount описывает результат пересчёта наличных оператором.
type OperatorCount struct {
	ID           int64
	CheckInID    int64
	OperatorID   int64
	Bills        Denominations
	Coins        decimal.Decimal
	TotalCounted decimal.Decimal
	Discrepancy  decimal.Decimal
	Observations string
	CreatedAt    time.Time
}

// CountSubmission содержит данные пересчёта, введённые оператором.
type CountSubmission struct {
	CheckInID    int64            `json:"check_in_id" validate:"required,gt=0"`
	Bills100k    int64            `json:"bills_100k" validate:"gte=0,lte=1000000"`
	Bills50k     int64            `json:"bills_50k" validate:"gte=0,lte=1000000"`
	Bills20k     int64            `json:"bills_20k" validate:"gte=0,lte=1000000"`
	Bills10k     int64            `json:"bills_10k" validate:"gte=0,lte=1000000"`
	Bills5k      int64            `json:"bills_5k" validate:"gte=0,lte=1000000"`
	Bills2k      int64            `json:"bills_2k" validate:"gte=0,lte=1000000"`
	Coins        decimal.Decimal  `json:"coins" validate:"gte=0"`
	TotalCounted decimal.Decimal  `json:"total_counted" validate:"gte=0"`
	Discrepancy  *decimal.Decimal `json:"discrepancy,omitempty"`
	Observations string           `json:"observations" validate:"max=2000"`
}

// Denominations возвращает количество купюр по номиналам.
func (s CountSubmission) Denominations() Denominations {
	return Denominations{
		Bills100k: s.Bills100k,
		Bills50k:  s.Bills50k,
		Bills20k:  s.Bills20k,
		Bills10k:  s.Bills10k,
		Bills5k:   s.Bills5k,
		Bills2k:   s.Bills2k,
	}
}

// ReconcileResult описывает итог сверки пересчёта с заявленной суммой.
type ReconcileResult struct {
	OperatorCountID int64
	InvoiceNumber   string
	Status          CheckInStatus
	Discrepancy     decimal.Decimal
	AlertID         *int64
	TaskID          *int64
}

// Recipient описывает адресата уведомления.
type Recipient struct {
	Name  string
	Email string
}

// CountDetails содержит данные планиллы для уведомления о пересчёте.
type CountDetails struct {
	InvoiceNumber string
	ClientName    string
	OperatorName  string
}
