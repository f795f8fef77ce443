// Package middleware содержит HTTP middleware для сервиса сверки наличных.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/cashdesk/internal/model"
)

type contextKey string

const principalKey contextKey = "principal"

const (
	sessionCookieName = "session"
	sessionTTL        = 12 * time.Hour
)

// UnauthorizedMessage отдаётся клиенту при отсутствии или недействительности сессии.
const UnauthorizedMessage = "Acceso no autorizado."

// sessionClaims содержит утверждения токена сессии.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет сессию пользователя по подписанному JWT в cookie.
type AuthMiddleware struct {
	secretKey []byte
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// При пустом ключе генерируется случайный, и сессии не переживают перезапуск.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}

	return &AuthMiddleware{
		secretKey: key,
		now:       time.Now,
	}
}

// Middleware проверяет cookie сессии и добавляет Principal в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		p, err := a.parseToken(cookie.Value)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetSessionCookie выпускает токен сессии для пользователя и устанавливает cookie.
func (a *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, p model.Principal) error {
	now := a.now()
	token, err := a.issueToken(p, now)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie удаляет cookie сессии.
func (a *AuthMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) issueToken(p model.Principal, now time.Time) (string, error) {
	claims := sessionClaims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (a *AuthMiddleware) parseToken(tokenString string) (model.Principal, error) {
	if tokenString == "" {
		return model.Principal{}, errors.New("empty token")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	claims := &sessionClaims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secretKey, nil
	}); err != nil {
		return model.Principal{}, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return model.Principal{}, errors.New("invalid subject")
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		return model.Principal{}, errors.New("invalid role")
	}

	return model.Principal{UserID: userID, Role: role}, nil
}

// PrincipalFromContext извлекает аутентифицированного пользователя из контекста запроса.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   UnauthorizedMessage,
	})
}
