package models

import (
	"errors"
	"fmt"
	"time"
)

// SubscriptionStatus хранимый статус абонемента.
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// DisplayStatusExpiring производный статус, вычисляемый только при чтении.
const DisplayStatusExpiring = "expiring"

// ExpiringWindowDays окно, в котором активный абонемент считается истекающим.
const ExpiringWindowDays = 7

type subscriptionTransition struct {
	From SubscriptionStatus
	To   SubscriptionStatus
}

var subscriptionTransitions = map[subscriptionTransition]bool{
	{SubscriptionPending, SubscriptionActive}:    true, // подтверждение платежа
	{SubscriptionPending, SubscriptionCancelled}: true, // отклонение платежа
	{SubscriptionActive, SubscriptionCancelled}:  true, // административная отмена
}

// CanTransitionSubscription сообщает, допустим ли переход между статусами абонемента.
// expired никогда не записывается переходом: он либо вычисляется при чтении,
// либо выставляется при историческом импорте в момент создания строки.
func CanTransitionSubscription(from, to SubscriptionStatus) bool {
	return subscriptionTransitions[subscriptionTransition{from, to}]
}

// IsTerminal сообщает, является ли статус конечным для строки.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionExpired || s == SubscriptionCancelled
}

// Valid проверяет, что статус входит в известный набор.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionPending, SubscriptionActive, SubscriptionExpired, SubscriptionCancelled:
		return true
	}
	return false
}

// Subscription купленный игроком пакет занятий.
// StartDate и EndDate хранятся как календарные дни (полночь UTC) и заполняются
// только при активации; до этого оба равны nil.
type Subscription struct {
	ID                string             `json:"id"`
	PlayerID          string             `json:"player_id"`
	PackageID         string             `json:"package_id"`
	SessionsTotal     int                `json:"sessions_total"`
	SessionsRemaining int                `json:"sessions_remaining"`
	StartDate         *time.Time         `json:"start_date,omitempty"`
	EndDate           *time.Time         `json:"end_date,omitempty"`
	Status            SubscriptionStatus `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Validate проверяет инварианты строки абонемента.
func (s *Subscription) Validate() error {
	if s.PlayerID == "" {
		return errors.New("subscription must belong to a player")
	}
	if s.PackageID == "" {
		return errors.New("subscription must reference a package")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("unknown subscription status %q", s.Status)
	}
	if s.SessionsTotal < 1 {
		return errors.New("sessions_total must be positive")
	}
	if s.SessionsRemaining < 0 || s.SessionsRemaining > s.SessionsTotal {
		return fmt.Errorf("sessions_remaining %d out of range [0, %d]", s.SessionsRemaining, s.SessionsTotal)
	}
	if (s.StartDate == nil) != (s.EndDate == nil) {
		return errors.New("start_date and end_date must be both set or both unset")
	}
	if s.StartDate != nil && s.EndDate.Before(*s.StartDate) {
		return errors.New("end_date must not be before start_date")
	}
	return nil
}

// DisplayStatus возвращает статус для показа на дату today, не изменяя хранимый:
// активный абонемент с end_date раньше today показывается как expired,
// а с end_date в пределах ExpiringWindowDays как expiring.
func (s *Subscription) DisplayStatus(today time.Time) string {
	if s.Status != SubscriptionActive || s.EndDate == nil {
		return string(s.Status)
	}
	if s.EndDate.Before(today) {
		return string(SubscriptionExpired)
	}
	if !s.EndDate.After(today.AddDate(0, 0, ExpiringWindowDays)) {
		return DisplayStatusExpiring
	}
	return string(SubscriptionActive)
}

// Covers сообщает, покрывает ли окно действия абонемента указанный день.
func (s *Subscription) Covers(day time.Time) bool {
	if s.StartDate == nil || s.EndDate == nil {
		return false
	}
	return !day.Before(*s.StartDate) && !day.After(*s.EndDate)
}

// SubscriptionView абонемент вместе с производным статусом для ответа клиенту.
type SubscriptionView struct {
	Subscription
	DisplayStatus string `json:"display_status"`
}
