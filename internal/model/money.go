package model

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Denominations хранит количество купюр каждого номинала.
type Denominations struct {
	Bills100k int64
	Bills50k  int64
	Bills20k  int64
	Bills10k  int64
	Bills5k   int64
	Bills2k   int64
}

// DenominationLine описывает строку разбивки пересчёта по номиналу.
type DenominationLine struct {
	Label string
	Value int64
	Count int64
}

// Lines возвращает разбивку по номиналам в порядке убывания.
func (d Denominations) Lines() []DenominationLine {
	return []DenominationLine{
		{Label: "$100.000", Value: 100000, Count: d.Bills100k},
		{Label: "$50.000", Value: 50000, Count: d.Bills50k},
		{Label: "$20.000", Value: 20000, Count: d.Bills20k},
		{Label: "$10.000", Value: 10000, Count: d.Bills10k},
		{Label: "$5.000", Value: 5000, Count: d.Bills5k},
		{Label: "$2.000", Value: 2000, Count: d.Bills2k},
	}
}

// Total возвращает сумму купюр в песо.
func (d Denominations) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines() {
		total = total.Add(decimal.NewFromInt(line.Value).Mul(decimal.NewFromInt(line.Count)))
	}
	return total
}

// CentsToPesos переводит сумму в сентаво в песо.
func CentsToPesos(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// PesosToCents переводит сумму в песо в сентаво с округлением.
func PesosToCents(pesos decimal.Decimal) int64 {
	return pesos.Shift(2).Round(0).IntPart()
}

// FormatPesos форматирует сумму без дробной части с точкой в качестве разделителя разрядов.
func FormatPesos(pesos decimal.Decimal) string {
	return humanize.FormatInteger("#.###,", int(pesos.Round(0).IntPart()))
}

// FormatCount форматирует количество с разделителем разрядов.
func FormatCount(n int64) string {
	return humanize.FormatInteger("#.###,", int(n))
}
