// Package handler содержит HTTP-обработчики API сервиса сверки наличных.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/cashdesk/internal/middleware"
	"github.com/mmeshcher/cashdesk/internal/model"
	"github.com/mmeshcher/cashdesk/internal/repository"
	"github.com/mmeshcher/cashdesk/internal/service"
	"github.com/mmeshcher/cashdesk/internal/validation"
)

const (
	msgNotFoundOrProcessed = "Planilla no encontrada o ya fue procesada."
	msgMissingInvoice      = "No se proporcionó número de planilla."
	msgForbidden           = "Acceso denegado."
	msgInvalidData         = "Datos inválidos."
	msgBadRequest          = "Solicitud inválida."
	msgInvalidCredentials  = "Credenciales inválidas."
	msgInternal            = "Error interno del servidor."
	msgDatabasePrefix      = "Error en la base de datos: "
	msgCountSaved          = "Conteo guardado. Notificando..."
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Authenticate(ctx context.Context, login, password string) (*model.User, error)
	LookupCheckIn(ctx context.Context, p model.Principal, invoiceNumber string) (*model.CheckIn, error)
	SubmitCount(ctx context.Context, p model.Principal, sub model.CountSubmission) (*model.ReconcileResult, error)
	History(ctx context.Context, p model.Principal, q model.HistoryQuery) (*model.HistoryReport, error)
	Ping(ctx context.Context) error
}

// Handler реализует HTTP-обработчики API сервиса сверки наличных.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Data    any               `json:"data,omitempty"`
	Stats   any               `json:"stats,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Error: msg})
}

// writeKnownError отвечает клиенту на ожидаемые ошибки сервиса и сообщает, была ли ошибка распознана.
// notPendingStatus задаёт код для планиллы, которая не найдена или уже обработана.
func writeKnownError(w http.ResponseWriter, err error, notPendingStatus int) bool {
	var verr *validation.Error

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeFail(w, http.StatusUnauthorized, middleware.UnauthorizedMessage)
	case errors.Is(err, service.ErrForbidden):
		writeFail(w, http.StatusForbidden, msgForbidden)
	case errors.Is(err, service.ErrMissingInvoice):
		writeFail(w, http.StatusUnprocessableEntity, msgMissingInvoice)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, envelope{Error: msgInvalidData, Fields: verr.Fields})
	case errors.Is(err, repository.ErrCheckInNotFound), errors.Is(err, repository.ErrCheckInNotPending):
		writeFail(w, notPendingStatus, msgNotFoundOrProcessed)
	default:
		return false
	}
	return true
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type userResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Login выполняет аутентификацию пользователя и устанавливает cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		writeFail(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	u, err := h.service.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeFail(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, msgInternal)
		return
	}

	if err := h.authMiddleware.SetSessionCookie(w, model.Principal{UserID: u.ID, Role: u.Role}); err != nil {
		h.logger.Error("issue session error", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    userResponse{ID: u.ID, Name: u.Name, Role: string(u.Role)},
	})
}

// Logout завершает сессию пользователя.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

type checkInResponse struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	SealNumber    string          `json:"seal_number"`
	DeclaredValue decimal.Decimal `json:"declared_value"`
	ClientName    string          `json:"client_name"`
}

// LookupCheckIn возвращает планиллу, ожидающую пересчёта, по номеру из параметра planilla.
func (h *Handler) LookupCheckIn(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeFail(w, http.StatusUnauthorized, middleware.UnauthorizedMessage)
		return
	}

	ci, err := h.service.LookupCheckIn(r.Context(), p, r.URL.Query().Get("planilla"))
	if err != nil {
		if !writeKnownError(w, err, http.StatusNotFound) {
			h.logger.Error("lookup check-in error", zap.Error(err))
			writeFail(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: checkInResponse{
			ID:            ci.ID,
			InvoiceNumber: ci.InvoiceNumber,
			SealNumber:    ci.SealNumber,
			DeclaredValue: ci.DeclaredValue,
			ClientName:    ci.ClientName,
		},
	})
}

type submitCountResponse struct {
	OperatorCountID int64           `json:"operator_count_id"`
	Status          string          `json:"status"`
	Discrepancy     decimal.Decimal `json:"discrepancy"`
	AlertID         *int64          `json:"alert_id,omitempty"`
	TaskID          *int64          `json:"task_id,omitempty"`
}

// SubmitCount сохраняет пересчёт оператора.
func (h *Handler) SubmitCount(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeFail(w, http.StatusUnauthorized, middleware.UnauthorizedMessage)
		return
	}

	defer r.Body.Close()

	var sub model.CountSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeFail(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	res, err := h.service.SubmitCount(r.Context(), p, sub)
	if err != nil {
		if !writeKnownError(w, err, http.StatusConflict) {
			h.logger.Error("submit count error", zap.Error(err), zap.Int64("checkInID", sub.CheckInID))
			writeFail(w, http.StatusInternalServerError, msgDatabasePrefix+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: msgCountSaved,
		Data: submitCountResponse{
			OperatorCountID: res.OperatorCountID,
			Status:          string(res.Status),
			Discrepancy:     res.Discrepancy,
			AlertID:         res.AlertID,
			TaskID:          res.TaskID,
		},
	})
}

// Healthz проверяет доступность базы данных.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
