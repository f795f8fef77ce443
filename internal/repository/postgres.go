// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/cashdesk/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrCheckInNotFound возвращается, если планилла не найдена или уже обработана.
	ErrCheckInNotFound = errors.New("check-in not found")
	// ErrCheckInNotPending возвращается при попытке пересчёта планиллы не в статусе Pendiente.
	ErrCheckInNotPending = errors.New("check-in already processed")
	// ErrDiscrepancyMismatch возвращается, если присланное расхождение не совпадает с вычисленным.
	ErrDiscrepancyMismatch = errors.New("discrepancy does not match declared value")
)

// DB описывает подмножество методов пула pgx, используемое репозиторием.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	db   DB
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{db: pool, pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

// NewWithDB создаёт репозиторий поверх готового подключения без запуска миграций.
func NewWithDB(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, login, password_hash, name, COALESCE(email, ''), role, created_at
		 FROM users
		 WHERE login = $1`,
		login,
	)

	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Name, &u.Email, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}

// GetPendingCheckIn возвращает планиллу по номеру, только если она в статусе Pendiente.
// Отсутствующая и уже обработанная планиллы не различаются.
func (r *PostgresRepository) GetPendingCheckIn(ctx context.Context, invoiceNumber string) (*model.CheckIn, error) {
	row := r.db.QueryRow(ctx,
		`SELECT ci.id, ci.invoice_number, ci.seal_number, ci.declared_value, ci.status,
		        c.id, c.name, ci.created_at
		 FROM check_ins ci
		 JOIN clients c ON ci.client_id = c.id
		 WHERE ci.invoice_number = $1 AND ci.status = $2`,
		invoiceNumber, string(model.CheckInStatusPending),
	)

	var (
		ci            model.CheckIn
		declaredCents int64
		status        string
	)
	err := row.Scan(&ci.ID, &ci.InvoiceNumber, &ci.SealNumber, &declaredCents, &status,
		&ci.ClientID, &ci.ClientName, &ci.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCheckInNotFound
		}
		return nil, fmt.Errorf("get check-in: %w", err)
	}

	ci.DeclaredValue = model.CentsToPesos(declaredCents)
	ci.Status = model.CheckInStatus(status)

	return &ci, nil
}

// GetCountDetails возвращает данные планиллы, клиента и оператора для уведомления.
func (r *PostgresRepository) GetCountDetails(ctx context.Context, checkInID, operatorID int64) (*model.CountDetails, error) {
	var d model.CountDetails
	err := r.db.QueryRow(ctx,
		`SELECT ci.invoice_number, c.name, u.name
		 FROM check_ins ci
		 JOIN clients c ON ci.client_id = c.id
		 JOIN users u ON u.id = $1
		 WHERE ci.id = $2`,
		operatorID, checkInID,
	).Scan(&d.InvoiceNumber, &d.ClientName, &d.OperatorName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCheckInNotFound
		}
		return nil, fmt.Errorf("get count details: %w", err)
	}

	return &d, nil
}

// ListNotificationRecipients возвращает администраторов и дигитадоров с заполненным email.
func (r *PostgresRepository) ListNotificationRecipients(ctx context.Context) ([]model.Recipient, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, email
		 FROM users
		 WHERE role IN ($1, $2) AND email IS NOT NULL AND email <> ''
		 ORDER BY id`,
		string(model.RoleAdmin), string(model.RoleDigitizer),
	)
	if err != nil {
		return nil, fmt.Errorf("select recipients: %w", err)
	}
	defer rows.Close()

	var res []model.Recipient
	for rows.Next() {
		var rcpt model.Recipient
		if err := rows.Scan(&rcpt.Name, &rcpt.Email); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		res = append(res, rcpt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
