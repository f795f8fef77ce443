package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AlertStatus описывает статус алерта.
type AlertStatus string

const (
	AlertStatusPending  AlertStatus = "Pendiente"
	AlertStatusAssigned AlertStatus = "Asignada"
)

// Priority описывает приоритет алерта или задачи.
type Priority string

const PriorityCritical Priority = "Critica"

// TaskStatus описывает статус задачи.
type TaskStatus string

const TaskStatusPending TaskStatus = "Pendiente"

// TaskType описывает тип задачи.
type TaskType string

const TaskTypeAssignment TaskType = "Asignacion"

// Alert описывает ситуацию, требующую внимания сотрудников.
type Alert struct {
	ID            int64
	Title         string
	Description   string
	Priority      Priority
	Status        AlertStatus
	SuggestedRole Role
	CheckInID     int64
}

// Task описывает задачу, назначенную группе пользователей по алерту.
type Task struct {
	ID              int64
	AlertID         int64
	AssignedGroup   Role
	Instruction     string
	Type            TaskType
	Status          TaskStatus
	Priority        Priority
	CreatedByUserID int64
}

// StatusForDiscrepancy возвращает статус планиллы после пересчёта.
// Статус Cerrado здесь не выставляется: его ставит дигитадор при закрытии.
func StatusForDiscrepancy(discrepancy decimal.Decimal) CheckInStatus {
	if discrepancy.IsZero() {
		return CheckInStatusProcessed
	}
	return CheckInStatusDiscrepancy
}

// NewDiscrepancyAlert создаёт алерт о расхождении по планилле.
func NewDiscrepancyAlert(checkInID int64, invoiceNumber string, discrepancy decimal.Decimal) Alert {
	return Alert{
		Title:         "Discrepancia en Planilla: " + invoiceNumber,
		Description:   fmt.Sprintf("Diferencia de $%s. Requiere revisión y seguimiento.", FormatPesos(discrepancy)),
		Priority:      PriorityCritical,
		Status:        AlertStatusPending,
		SuggestedRole: RoleDigitizer,
		CheckInID:     checkInID,
	}
}

// NewFollowUpTask создаёт задачу группе дигитадоров по алерту о расхождении.
func NewFollowUpTask(alertID int64, invoiceNumber string, createdBy int64) Task {
	return Task{
		AlertID:         alertID,
		AssignedGroup:   RoleDigitizer,
		Instruction:     fmt.Sprintf("Realizar seguimiento a la discrepancia (%s), contactar a los responsables y documentar la resolución.", invoiceNumber),
		Type:            TaskTypeAssignment,
		Status:          TaskStatusPending,
		Priority:        PriorityCritical,
		CreatedByUserID: createdBy,
	}
}
