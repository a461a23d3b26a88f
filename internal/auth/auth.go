// Package auth проверяет bearer токены. Токены выпускает внешний сервис
// аутентификации; здесь только подпись HS256 и claim sub.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated - запрос без валидного токена.
var ErrUnauthenticated = errors.New("unauthenticated")

type contextKey string

const userKey = contextKey("user")

// Verifier проверяет и выпускает токены с общим секретом.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse возвращает id пользователя из claim sub.
func (v *Verifier) Parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return claims.Subject, nil
}

// IssueToken выпускает токен для пользователя (для разработки и тестов).
func (v *Verifier) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Middleware кладет пользователя в контекст, если токен есть и валиден.
// Анонимный запрос проходит дальше; невалидный токен тоже, но без пользователя -
// маршруты, которым нужен пользователь, отвечают 401 сами.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if tokenString, ok := strings.CutPrefix(header, "Bearer "); ok {
			if userID, err := v.Parse(strings.TrimSpace(tokenString)); err == nil {
				r = r.WithContext(WithUser(r.Context(), userID))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser кладет id пользователя в контекст.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFrom возвращает id пользователя или "" для анонимного запроса.
func UserFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}

// RequireUser возвращает id пользователя или ErrUnauthenticated.
func RequireUser(ctx context.Context) (string, error) {
	if id := UserFrom(ctx); id != "" {
		return id, nil
	}
	return "", ErrUnauthenticated
}
