package models

import "time"

// PaymentNotice сообщение о решении по платежу, публикуемое после коммита.
type PaymentNotice struct {
	PaymentID       string        `json:"payment_id"`
	SubscriptionID  string        `json:"subscription_id"`
	Status          PaymentStatus `json:"status"`
	Email           string        `json:"email"`
	PlayerName      string        `json:"player_name"`
	PackageName     string        `json:"package_name"`
	StartDate       *time.Time    `json:"start_date,omitempty"`
	EndDate         *time.Time    `json:"end_date,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
}

// ExpiringNotice сведения об абонементе, срок которого скоро закончится.
type ExpiringNotice struct {
	SubscriptionID    string    `json:"subscription_id"`
	Email             string    `json:"email"`
	PlayerName        string    `json:"player_name"`
	PackageName       string    `json:"package_name"`
	EndDate           time.Time `json:"end_date"`
	SessionsRemaining int       `json:"sessions_remaining"`
}
