// Package signedurl выдаёт ссылки на скриншоты оплат с ограниченным сроком
// действия. Подпись: HMAC-SHA256 от ключа объекта и времени истечения.
package signedurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrExpired          = errors.New("signed url expired")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer подписывает и проверяет ссылки.
type Signer struct {
	baseURL string
	key     []byte
	ttl     time.Duration
}

func New(baseURL, key string, ttl time.Duration) *Signer {
	return &Signer{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     []byte(key),
		ttl:     ttl,
	}
}

// TTL время жизни выдаваемых ссылок.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Sign возвращает ссылку на объект objectKey, действующую до now+ttl.
func (s *Signer) Sign(objectKey string, now time.Time) (string, time.Time, error) {
	const op = "signedurl.Sign"
	if strings.TrimSpace(objectKey) == "" {
		return "", time.Time{}, fmt.Errorf("%s: empty object key", op)
	}
	expires := now.Add(s.ttl).UTC().Truncate(time.Second)

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires.Unix(), 10))
	q.Set("signature", s.signature(objectKey, expires.Unix()))

	return s.baseURL + "/" + url.PathEscape(objectKey) + "?" + q.Encode(), expires, nil
}

// Verify проверяет подпись и срок для objectKey.
func (s *Signer) Verify(objectKey, expires, signature string, now time.Time) error {
	const op = "signedurl.Verify"
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}
	want := s.signature(objectKey, exp)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}
	if now.Unix() > exp {
		return fmt.Errorf("%s: %w", op, ErrExpired)
	}
	return nil
}

func (s *Signer) signature(objectKey string, expires int64) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(objectKey))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
