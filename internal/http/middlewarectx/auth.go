// Package middlewarectx содержит HTTP middleware для проверки JWT операторов,
// ролей и ограничения частоты запросов.
//
// JWTMiddleware проверяет токен из заголовка Authorization и кладёт оператора
// в контекст запроса. Обработчики достают его через OperatorFrom.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/jwt"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// OperatorKey ключ оператора в контексте.
const OperatorKey Key = "operator"

// TokenParser проверяет токен оператора.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден, добавляет оператора в контекст запроса,
// иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := WithOperator(r.Context(), claims.Operator())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithOperator кладёт оператора в контекст.
func WithOperator(ctx context.Context, operator models.Operator) context.Context {
	return context.WithValue(ctx, OperatorKey, operator)
}

// OperatorFrom достаёт оператора из контекста.
func OperatorFrom(ctx context.Context) (models.Operator, bool) {
	operator, ok := ctx.Value(OperatorKey).(models.Operator)
	if !ok || operator.ID == "" {
		return models.Operator{}, false
	}
	return operator, true
}

// RequireRole пропускает только операторов с одной из ролей roles.
func RequireRole(log *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator, ok := OperatorFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			if !slices.Contains(roles, operator.Role) {
				log.Warn("access denied",
					slog.String("operator", operator.ID),
					slog.String("role", operator.Role),
					slog.String("path", r.URL.Path),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
