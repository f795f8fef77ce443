package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/cashdesk/internal/metrics"
	custommiddleware "github.com/mmeshcher/cashdesk/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса сверки наличных.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	// promhttp сам сжимает ответ, поэтому /metrics обслуживается без GzipMiddleware.
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)

		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/operator/check-ins", h.LookupCheckIn)
			r.Post("/operator/counts", h.SubmitCount)

			r.Get("/history", h.GetHistory)
			r.Get("/history/export.xlsx", h.ExportHistoryXLSX)
			r.Get("/history/export.pdf", h.ExportHistoryPDF)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
