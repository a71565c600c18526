// Package jwt выпускает и проверяет токены операторов клуба. Аутентификация
// выполняется внешним сервисом; здесь только подпись HS256 и чтение claims.
package jwt

import (
	"time"
)

// Maker выпускает и разбирает токены оператора.
type Maker interface {
	GenerateToken(operatorID, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализация Maker на общем секрете.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт Maker с секретом и временем жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
