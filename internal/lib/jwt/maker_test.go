package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/club-ledger/internal/models"
)

const testSecret = "test_secret_key_1234567890"

func TestMaker_GenerateAndParse(t *testing.T) {
	maker := NewJWTMaker(testSecret, 15*time.Minute)

	tests := []struct {
		name       string
		operatorID string
		role       string
	}{
		{name: "admin", operatorID: "op-1", role: models.RoleAdmin},
		{name: "coach", operatorID: "coach@club.eg", role: models.RoleCoach},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.operatorID, tt.role)
			require.NoError(t, err)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, models.Operator{ID: tt.operatorID, Role: tt.role}, claims.Operator())
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestMaker_GenerateRejectsUnknownRole(t *testing.T) {
	maker := NewJWTMaker(testSecret, time.Minute)

	_, err := maker.GenerateToken("op-1", "player")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestMaker_ParseInvalidTokens(t *testing.T) {
	maker := NewJWTMaker(testSecret, 15*time.Minute)
	valid, err := maker.GenerateToken("op-1", models.RoleCoach)
	require.NoError(t, err)

	expired, err := NewJWTMaker(testSecret, -time.Hour).GenerateToken("op-1", models.RoleCoach)
	require.NoError(t, err)
	foreign, err := NewJWTMaker("other_secret", time.Hour).GenerateToken("op-1", models.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "malformed", token: "invalid.token.here"},
		{name: "expired", token: expired},
		{name: "wrong secret", token: foreign},
		{name: "tampered", token: valid + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestMaker_ExpiredMessage(t *testing.T) {
	maker := NewJWTMaker(testSecret, time.Minute)
	maker.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	token, err := maker.GenerateToken("op-1", models.RoleAdmin)
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}
