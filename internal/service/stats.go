package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/cashdesk/internal/model"
)

type totalsByUser struct {
	order  []int64
	totals map[int64]*model.UserTotal
}

func newTotalsByUser() *totalsByUser {
	return &totalsByUser{totals: make(map[int64]*model.UserTotal)}
}

func (t *totalsByUser) add(userID int64, name string, amount decimal.Decimal) {
	ut, ok := t.totals[userID]
	if !ok {
		ut = &model.UserTotal{UserID: userID, Name: name, Total: decimal.Zero}
		t.totals[userID] = ut
		t.order = append(t.order, userID)
	}
	ut.Total = ut.Total.Add(amount)
	ut.Count++
}

// sorted возвращает итоги по убыванию суммы; при равных суммах сохраняется порядок первого появления.
func (t *totalsByUser) sorted() []model.UserTotal {
	res := make([]model.UserTotal, 0, len(t.order))
	for _, id := range t.order {
		res = append(res, *t.totals[id])
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Total.GreaterThan(res[j].Total)
	})
	return res
}

// computeStats считает общую сумму, количество строк и итоги по операторам и дигитадорам.
// Строки без дигитадора учитываются только в итогах по операторам.
func computeStats(rows []model.HistoryRow) model.HistoryStats {
	stats := model.HistoryStats{TotalAmount: decimal.Zero, TotalRows: len(rows)}

	operators := newTotalsByUser()
	digitizers := newTotalsByUser()

	for _, row := range rows {
		stats.TotalAmount = stats.TotalAmount.Add(row.TotalCounted)
		operators.add(row.OperatorID, row.OperatorName, row.TotalCounted)

		if row.DigitizerID != nil {
			name := ""
			if row.DigitizerName != nil {
				name = *row.DigitizerName
			}
			digitizers.add(*row.DigitizerID, name, row.TotalCounted)
		}
	}

	stats.ByOperator = operators.sorted()
	stats.ByDigitizer = digitizers.sorted()

	return stats
}
