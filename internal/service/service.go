// Package service реализует бизнес-логику сервиса сверки наличных.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/cashdesk/internal/metrics"
	"github.com/mmeshcher/cashdesk/internal/model"
	"github.com/mmeshcher/cashdesk/internal/notify"
	"github.com/mmeshcher/cashdesk/internal/repository"
	"github.com/mmeshcher/cashdesk/internal/validation"
)

const defaultNotifyTimeout = 30 * time.Second

var (
	// ErrUnauthorized возвращается, если операция вызвана без аутентифицированного пользователя.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden возвращается, если роль пользователя не допускает операцию.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials возвращается при неверном логине или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingInvoice возвращается, если номер планиллы не передан.
	ErrMissingInvoice = errors.New("invoice number is required")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetPendingCheckIn(ctx context.Context, invoiceNumber string) (*model.CheckIn, error)
	SubmitCount(ctx context.Context, operatorID int64, sub model.CountSubmission) (*model.ReconcileResult, error)
	GetCountDetails(ctx context.Context, checkInID, operatorID int64) (*model.CountDetails, error)
	ListNotificationRecipients(ctx context.Context) ([]model.Recipient, error)
	GetHistory(ctx context.Context, f model.HistoryFilter) ([]model.HistoryRow, error)
}

// CountNotifier рассылает отчёт о пересчёте.
type CountNotifier interface {
	NotifyCount(ctx context.Context, recipients []model.Recipient, report notify.CountReport) int
}

// Service содержит бизнес-логику сервиса сверки наличных.
type Service struct {
	repo          Repository
	notifier      CountNotifier
	logger        *zap.Logger
	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

// NewService создаёт новый сервис. notifier может быть nil, тогда письма не отправляются.
func NewService(repo Repository, notifier CountNotifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:          repo,
		notifier:      notifier,
		logger:        logger,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// Close дожидается отправки начатых уведомлений и закрывает ресурсы сервиса.
func (s *Service) Close() error {
	s.wg.Wait()
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func authorize(p model.Principal, roles ...model.Role) error {
	if p.UserID <= 0 || !p.Role.Valid() {
		return ErrUnauthorized
	}
	if !p.Role.OneOf(roles...) {
		return ErrForbidden
	}
	return nil
}

// Authenticate проверяет логин и пароль и возвращает пользователя.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// LookupCheckIn возвращает планиллу в статусе Pendiente по номеру.
func (s *Service) LookupCheckIn(ctx context.Context, p model.Principal, invoiceNumber string) (*model.CheckIn, error) {
	if err := authorize(p, model.RoleAdmin, model.RoleOperator); err != nil {
		return nil, err
	}

	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return nil, ErrMissingInvoice
	}
	if !validation.IsValidInvoiceNumber(invoiceNumber) {
		return nil, validation.FieldError("planilla", "max=255")
	}

	return s.repo.GetPendingCheckIn(ctx, invoiceNumber)
}

// SubmitCount проверяет и сохраняет пересчёт оператора, после фиксации транзакции
// в фоне рассылает уведомление.
func (s *Service) SubmitCount(ctx context.Context, p model.Principal, sub model.CountSubmission) (*model.ReconcileResult, error) {
	if err := authorize(p, model.RoleAdmin, model.RoleOperator); err != nil {
		return nil, err
	}

	if err := validation.CountSubmission(sub); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.repo.SubmitCount(ctx, p.UserID, sub)
	metrics.ObserveReconcile(metrics.Result(err), time.Since(start))
	if err != nil {
		if errors.Is(err, repository.ErrDiscrepancyMismatch) {
			return nil, validation.FieldError("discrepancy", "must equal total_counted minus declared value")
		}
		return nil, err
	}

	metrics.IncCountSubmitted(string(res.Status))
	if res.AlertID != nil {
		metrics.IncAlertCreated()
	}

	s.notifyAsync(p.UserID, sub, *res)

	return res, nil
}

func (s *Service) notifyAsync(operatorID int64, sub model.CountSubmission, res model.ReconcileResult) {
	if s.notifier == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Контекст запроса к этому моменту уже отменён.
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		log := s.logger.With(zap.String("invoice", res.InvoiceNumber), zap.Int64("operatorCountID", res.OperatorCountID))

		details, err := s.repo.GetCountDetails(ctx, sub.CheckInID, operatorID)
		if err != nil {
			log.Error("load count details for notification", zap.Error(err))
			return
		}

		recipients, err := s.repo.ListNotificationRecipients(ctx)
		if err != nil {
			log.Error("load notification recipients", zap.Error(err))
			return
		}
		if len(recipients) == 0 {
			log.Info("no notification recipients")
			return
		}

		report := notify.NewCountReport(*details, sub, res.Discrepancy)
		sent := s.notifier.NotifyCount(ctx, recipients, report)
		log.Info("count notification sent", zap.Int("sent", sent), zap.Int("recipients", len(recipients)))
	}()
}

// History возвращает историю пересчётов и статистику по выборке. Доступно только администраторам.
// Фильтры разбираются после проверки роли.
func (s *Service) History(ctx context.Context, p model.Principal, q model.HistoryQuery) (*model.HistoryReport, error) {
	if err := authorize(p, model.RoleAdmin); err != nil {
		return nil, err
	}

	f, err := validation.HistoryQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.GetHistory(ctx, f)
	metrics.IncHistoryQuery(metrics.Result(err))
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	return &model.HistoryReport{Rows: rows, Stats: computeStats(rows)}, nil
}
