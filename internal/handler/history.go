package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/cashdesk/internal/middleware"
	"github.com/mmeshcher/cashdesk/internal/model"
	"github.com/mmeshcher/cashdesk/internal/report"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// historyQuery читает start_date, end_date и user_id из строки запроса без разбора.
func historyQuery(r *http.Request) model.HistoryQuery {
	q := r.URL.Query()
	return model.HistoryQuery{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		UserID:    q.Get("user_id"),
	}
}

type historyRowResponse struct {
	CreatedAt     string          `json:"created_at"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientName    string          `json:"client_name"`
	OperatorID    int64           `json:"operator_id"`
	OperatorName  string          `json:"operator_name"`
	DigitizerID   *int64          `json:"digitizer_id"`
	DigitizerName *string         `json:"digitizer_name"`
	TotalCounted  decimal.Decimal `json:"total_counted"`
	FinalStatus   string          `json:"final_status"`
}

type userTotalResponse struct {
	UserID int64           `json:"user_id"`
	Name   string          `json:"name"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

type historyStatsResponse struct {
	TotalAmount decimal.Decimal     `json:"total_amount"`
	TotalRows   int                 `json:"total_rows"`
	ByOperator  []userTotalResponse `json:"by_operator"`
	ByDigitizer []userTotalResponse `json:"by_digitizer"`
}

func toUserTotals(totals []model.UserTotal) []userTotalResponse {
	res := make([]userTotalResponse, 0, len(totals))
	for _, ut := range totals {
		res = append(res, userTotalResponse{UserID: ut.UserID, Name: ut.Name, Total: ut.Total, Count: ut.Count})
	}
	return res
}

func (h *Handler) loadHistory(w http.ResponseWriter, r *http.Request) (*model.HistoryReport, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeFail(w, http.StatusUnauthorized, middleware.UnauthorizedMessage)
		return nil, false
	}

	rep, err := h.service.History(r.Context(), p, historyQuery(r))
	if err != nil {
		if !writeKnownError(w, err, http.StatusNotFound) {
			h.logger.Error("get history error", zap.Error(err))
			writeFail(w, http.StatusInternalServerError, msgInternal)
		}
		return nil, false
	}

	return rep, true
}

// GetHistory возвращает историю пересчётов и статистику по ней.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadHistory(w, r)
	if !ok {
		return
	}

	rows := make([]historyRowResponse, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		rows = append(rows, historyRowResponse{
			CreatedAt:     row.CreatedAt.Format(time.RFC3339),
			InvoiceNumber: row.InvoiceNumber,
			ClientName:    row.ClientName,
			OperatorID:    row.OperatorID,
			OperatorName:  row.OperatorName,
			DigitizerID:   row.DigitizerID,
			DigitizerName: row.DigitizerName,
			TotalCounted:  row.TotalCounted,
			FinalStatus:   row.FinalStatus,
		})
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    rows,
		Stats: historyStatsResponse{
			TotalAmount: rep.Stats.TotalAmount,
			TotalRows:   rep.Stats.TotalRows,
			ByOperator:  toUserTotals(rep.Stats.ByOperator),
			ByDigitizer: toUserTotals(rep.Stats.ByDigitizer),
		},
	})
}

// ExportHistoryXLSX выгружает историю в XLSX.
func (h *Handler) ExportHistoryXLSX(w http.ResponseWriter, r *http.Request) {
	h.exportHistory(w, r, "historial.xlsx", contentTypeXLSX, report.BuildHistoryXLSX)
}

// ExportHistoryPDF выгружает историю в PDF.
func (h *Handler) ExportHistoryPDF(w http.ResponseWriter, r *http.Request) {
	h.exportHistory(w, r, "historial.pdf", contentTypePDF, report.BuildHistoryPDF)
}

func (h *Handler) exportHistory(w http.ResponseWriter, r *http.Request, filename, contentType string, build func(*model.HistoryReport) ([]byte, error)) {
	rep, ok := h.loadHistory(w, r)
	if !ok {
		return
	}

	data, err := build(rep)
	if err != nil {
		h.logger.Error("build history export error", zap.Error(err), zap.String("file", filename))
		writeFail(w, http.StatusInternalServerError, msgInternal)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
