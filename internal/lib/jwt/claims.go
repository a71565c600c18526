package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/club-ledger/internal/models"
)

// ErrUnknownRole токен подписан верно, но роль не admin и не coach.
var ErrUnknownRole = errors.New("unknown operator role")

// CustomClaims claims оператора: Subject содержит идентификатор оператора.
type CustomClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Operator превращает claims в оператора для сервисов.
func (c *CustomClaims) Operator() models.Operator {
	return models.Operator{ID: c.Subject, Role: c.Role}
}

// GenerateToken подписывает токен для оператора operatorID с ролью role.
func (j *MakerImpl) GenerateToken(operatorID, role string) (string, error) {
	const op = "jwt.GenerateToken"
	if role != models.RoleAdmin && role != models.RoleCoach {
		return "", fmt.Errorf("%s: %w: %q", op, ErrUnknownRole, role)
	}
	now := j.now()
	claims := CustomClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись, срок и роль токена.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Role != models.RoleAdmin && claims.Role != models.RoleCoach {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownRole, claims.Role)
	}
	return claims, nil
}
