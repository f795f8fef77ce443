package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatusForDiscrepancy(t *testing.T) {
	assert.Equal(t, CheckInStatusProcessed, StatusForDiscrepancy(decimal.Zero))
	assert.Equal(t, CheckInStatusDiscrepancy, StatusForDiscrepancy(decimal.NewFromInt(-5000)))
	assert.Equal(t, CheckInStatusDiscrepancy, StatusForDiscrepancy(decimal.NewFromInt(2000)))
}

func TestNewDiscrepancyAlert(t *testing.T) {
	a := NewDiscrepancyAlert(42, "PL-001", decimal.NewFromInt(-5000))

	assert.Equal(t, "Discrepancia en Planilla: PL-001", a.Title)
	assert.Equal(t, "Diferencia de $-5.000. Requiere revisión y seguimiento.", a.Description)
	assert.Equal(t, PriorityCritical, a.Priority)
	assert.Equal(t, AlertStatusPending, a.Status)
	assert.Equal(t, RoleDigitizer, a.SuggestedRole)
	assert.Equal(t, int64(42), a.CheckInID)
}

func TestNewFollowUpTask(t *testing.T) {
	task := NewFollowUpTask(7, "PL-001", 3)

	assert.Equal(t, int64(7), task.AlertID)
	assert.Equal(t, RoleDigitizer, task.AssignedGroup)
	assert.Equal(t, TaskTypeAssignment, task.Type)
	assert.Equal(t, int64(3), task.CreatedByUserID)
	assert.Contains(t, task.Instruction, "(PL-001)")
}

func TestDenominationsTotal(t *testing.T) {
	d := Denominations{Bills100k: 1, Bills50k: 2, Bills20k: 1, Bills10k: 1, Bills5k: 1, Bills2k: 3}

	assert.True(t, d.Total().Equal(decimal.NewFromInt(241000)), "got %s", d.Total())
	assert.Len(t, d.Lines(), 6)
}

func TestMoneyConversions(t *testing.T) {
	assert.True(t, CentsToPesos(10000050).Equal(decimal.RequireFromString("100000.50")))
	assert.Equal(t, int64(10000050), PesosToCents(decimal.RequireFromString("100000.50")))
	assert.Equal(t, "100.000", FormatPesos(decimal.NewFromInt(100000)))
	assert.Equal(t, "-5.000", FormatPesos(decimal.NewFromInt(-5000)))
	assert.Equal(t, "0", FormatPesos(decimal.Zero))
	assert.Equal(t, "1.250", FormatCount(1250))
}

func TestResolveDisplayStatus(t *testing.T) {
	closed := "Cerrado"
	open := "Abierto"

	tests := []struct {
		name      string
		status    string
		digitizer *string
		want      string
	}{
		{name: "closed by digitizer wins", status: "Procesado", digitizer: &closed, want: "Cerrado"},
		{name: "processed", status: "Procesado", want: "Procesado"},
		{name: "missing", status: "Faltante", digitizer: &open, want: "Faltante"},
		{name: "pending", status: "Pendiente", want: "Pendiente"},
		{name: "raw fallback", status: "Discrepancia", want: "Discrepancia"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDisplayStatus(tt.status, tt.digitizer))
		})
	}
}

func TestRoleOneOf(t *testing.T) {
	assert.True(t, RoleOperator.OneOf(RoleAdmin, RoleOperator))
	assert.False(t, RoleDigitizer.OneOf(RoleAdmin, RoleOperator))
	assert.False(t, Role("Guest").Valid())
}
