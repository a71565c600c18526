package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus статус платежа. Переходы только pending->confirmed и pending->rejected.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentRejected  PaymentStatus = "rejected"
)

// CanTransitionPayment сообщает, допустим ли переход статуса платежа.
func CanTransitionPayment(from, to PaymentStatus) bool {
	return from == PaymentPending && (to == PaymentConfirmed || to == PaymentRejected)
}

// PaymentMethod способ оплаты.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodInstapay PaymentMethod = "instapay"
)

var knownMethods = map[PaymentMethod]bool{
	MethodCash:     true,
	MethodInstapay: true,
}

// ParseMethod строго разбирает способ оплаты, введённый оператором.
func ParseMethod(raw string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	return m, knownMethods[m]
}

// NormalizeMethod приводит свободный текст из импорта к известному способу
// по вхождению подстроки; всё, что не похоже на instapay, считается наличными.
func NormalizeMethod(raw string) PaymentMethod {
	if strings.Contains(strings.ToLower(raw), "insta") {
		return MethodInstapay
	}
	return MethodCash
}

// Payment платёж, которому принадлежит ровно один абонемент.
type Payment struct {
	ID              string          `json:"id"`
	PlayerID        string          `json:"player_id"`
	SubscriptionID  string          `json:"subscription_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"method"`
	Status          PaymentStatus   `json:"status"`
	ScreenshotRef   string          `json:"screenshot_ref,omitempty"`
	ConfirmedBy     string          `json:"confirmed_by,omitempty"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Validate проверяет инварианты платежа.
func (p *Payment) Validate() error {
	if p.PlayerID == "" || p.SubscriptionID == "" {
		return errors.New("payment must reference a player and a subscription")
	}
	if !p.Amount.IsPositive() {
		return errors.New("payment amount must be positive")
	}
	switch p.Status {
	case PaymentPending:
		if p.ConfirmedAt != nil || p.RejectionReason != "" {
			return errors.New("pending payment must not carry confirmation or rejection data")
		}
	case PaymentConfirmed:
		if p.ConfirmedAt == nil || p.ConfirmedBy == "" {
			return errors.New("confirmed payment requires confirmed_at and confirmed_by")
		}
		if p.RejectionReason != "" {
			return errors.New("confirmed payment must not carry a rejection reason")
		}
	case PaymentRejected:
		if strings.TrimSpace(p.RejectionReason) == "" {
			return errors.New("rejected payment requires a rejection reason")
		}
		if p.ConfirmedAt != nil {
			return errors.New("rejected payment must not carry confirmed_at")
		}
	default:
		return errors.New("unknown payment status")
	}
	return nil
}

// PaymentFilter параметры выборки платежей; пустые поля не фильтруют.
type PaymentFilter struct {
	Status   PaymentStatus
	PlayerID string
	Limit    int
	Offset   int
}
