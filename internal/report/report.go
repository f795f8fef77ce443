// Package report формирует выгрузки истории пересчётов в XLSX и PDF.
package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/cashdesk/internal/model"
)

const (
	historySheet = "history"
	statsSheet   = "stats"

	dateLayout = "2006-01-02 15:04"
)

var historyHeader = []any{"Fecha", "Planilla", "Cliente", "Operador", "Digitador", "Total Contado", "Estado"}

func digitizerName(row model.HistoryRow) string {
	if row.DigitizerName == nil {
		return ""
	}
	return *row.DigitizerName
}

func amount(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// BuildHistoryXLSX возвращает книгу с листами history (строки) и stats (итоги).
func BuildHistoryXLSX(rep *model.HistoryReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(statsSheet); err != nil {
		return nil, fmt.Errorf("create stats sheet: %w", err)
	}

	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rep.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{
			row.CreatedAt.Format(dateLayout),
			row.InvoiceNumber,
			row.ClientName,
			row.OperatorName,
			digitizerName(row),
			amount(row.TotalCounted),
			row.FinalStatus,
		}
		if err := f.SetSheetRow(historySheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(historySheet, "A", "G", 18)

	stats := rep.Stats
	_ = f.SetCellValue(statsSheet, "A1", "Total Recaudado")
	_ = f.SetCellValue(statsSheet, "B1", amount(stats.TotalAmount))
	_ = f.SetCellValue(statsSheet, "A2", "Total Planillas")
	_ = f.SetCellValue(statsSheet, "B2", stats.TotalRows)

	line := 4
	line = writeUserTotals(f, line, "Recaudo por Operador", stats.ByOperator)
	writeUserTotals(f, line+1, "Cierres por Digitador", stats.ByDigitizer)
	_ = f.SetColWidth(statsSheet, "A", "C", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeUserTotals(f *excelize.File, line int, title string, totals []model.UserTotal) int {
	_ = f.SetCellValue(statsSheet, fmt.Sprintf("A%d", line), title)
	line++
	_ = f.SetCellValue(statsSheet, fmt.Sprintf("A%d", line), "Nombre")
	_ = f.SetCellValue(statsSheet, fmt.Sprintf("B%d", line), "Total")
	_ = f.SetCellValue(statsSheet, fmt.Sprintf("C%d", line), "Cantidad")
	for _, ut := range totals {
		line++
		_ = f.SetCellValue(statsSheet, fmt.Sprintf("A%d", line), ut.Name)
		_ = f.SetCellValue(statsSheet, fmt.Sprintf("B%d", line), amount(ut.Total))
		_ = f.SetCellValue(statsSheet, fmt.Sprintf("C%d", line), ut.Count)
	}
	return line + 1
}

// BuildHistoryPDF возвращает PDF с таблицей истории и итогами.
func BuildHistoryPDF(rep *model.HistoryReport) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, tr("Historial de Conteos"))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Total Recaudado: $%s", model.FormatPesos(rep.Stats.TotalAmount))))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Total Planillas: %d", rep.Stats.TotalRows)))
	pdf.Ln(8)

	widths := []float64{34, 32, 50, 40, 40, 36, 30}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range historyHeader {
		pdf.CellFormat(widths[i], 6, tr(h.(string)), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rep.Rows {
		pdf.CellFormat(widths[0], 6, row.CreatedAt.Format(dateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(row.InvoiceNumber), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, tr(row.ClientName), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, tr(row.OperatorName), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 6, tr(digitizerName(row)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[5], 6, "$"+model.FormatPesos(row.TotalCounted), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 6, tr(row.FinalStatus), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	writePDFTotals(pdf, tr, "Recaudo por Operador", rep.Stats.ByOperator)
	writePDFTotals(pdf, tr, "Cierres por Digitador", rep.Stats.ByDigitizer)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writePDFTotals(pdf *gofpdf.Fpdf, tr func(string) string, title string, totals []model.UserTotal) {
	if len(totals) == 0 {
		return
	}
	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, tr(title))
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 9)
	for _, ut := range totals {
		pdf.CellFormat(60, 6, tr(ut.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, "$"+model.FormatPesos(ut.Total), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", ut.Count), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
}
