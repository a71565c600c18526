package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestCanTransitionPayment(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentConfirmed))
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentRejected))
	assert.False(t, CanTransitionPayment(PaymentConfirmed, PaymentRejected))
	assert.False(t, CanTransitionPayment(PaymentRejected, PaymentConfirmed))
	assert.False(t, CanTransitionPayment(PaymentConfirmed, PaymentConfirmed))
}

func TestCanTransitionSubscription(t *testing.T) {
	tests := []struct {
		from, to SubscriptionStatus
		want     bool
	}{
		{SubscriptionPending, SubscriptionActive, true},
		{SubscriptionPending, SubscriptionCancelled, true},
		{SubscriptionActive, SubscriptionCancelled, true},
		{SubscriptionActive, SubscriptionExpired, false},
		{SubscriptionCancelled, SubscriptionActive, false},
		{SubscriptionExpired, SubscriptionActive, false},
		{SubscriptionActive, SubscriptionPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionSubscription(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.True(t, SubscriptionCancelled.IsTerminal())
	assert.True(t, SubscriptionExpired.IsTerminal())
	assert.False(t, SubscriptionActive.IsTerminal())
}

func TestPaymentMethods(t *testing.T) {
	m, ok := ParseMethod(" InstaPay ")
	assert.True(t, ok)
	assert.Equal(t, MethodInstapay, m)

	_, ok = ParseMethod("card")
	assert.False(t, ok)

	assert.Equal(t, MethodInstapay, NormalizeMethod("Instapay transfer"))
	assert.Equal(t, MethodCash, NormalizeMethod("Cash"))
	assert.Equal(t, MethodCash, NormalizeMethod("bank"))
}

func TestPaymentValidate(t *testing.T) {
	now := day(2024, time.June, 1)
	base := func() Payment {
		return Payment{PlayerID: "p1", SubscriptionID: "s1", Amount: decimal.NewFromInt(1600), Status: PaymentPending}
	}

	tests := []struct {
		name    string
		mutate  func(*Payment)
		wantErr bool
	}{
		{name: "pending", mutate: func(*Payment) {}},
		{name: "non-positive amount", mutate: func(p *Payment) { p.Amount = decimal.Zero }, wantErr: true},
		{name: "confirmed", mutate: func(p *Payment) {
			p.Status, p.ConfirmedAt, p.ConfirmedBy = PaymentConfirmed, &now, "admin"
		}},
		{name: "confirmed without timestamp", mutate: func(p *Payment) {
			p.Status, p.ConfirmedBy = PaymentConfirmed, "admin"
		}, wantErr: true},
		{name: "rejected with reason", mutate: func(p *Payment) {
			p.Status, p.RejectionReason, p.ConfirmedBy = PaymentRejected, "blurry", "admin"
		}},
		{name: "rejected without reason", mutate: func(p *Payment) { p.Status = PaymentRejected }, wantErr: true},
		{name: "pending with reason", mutate: func(p *Payment) { p.RejectionReason = "x" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			if tt.wantErr {
				assert.Error(t, p.Validate())
			} else {
				assert.NoError(t, p.Validate())
			}
		})
	}
}

func TestSubscriptionValidate(t *testing.T) {
	sub := Subscription{PlayerID: "p1", PackageID: "k1", SessionsTotal: 8, SessionsRemaining: 8, Status: SubscriptionPending}
	assert.NoError(t, sub.Validate())

	over := sub
	over.SessionsRemaining = 9
	assert.Error(t, over.Validate())

	halfDated := sub
	halfDated.StartDate = ptr(day(2024, time.June, 1))
	assert.Error(t, halfDated.Validate())

	reversed := sub
	reversed.StartDate, reversed.EndDate = ptr(day(2024, time.June, 10)), ptr(day(2024, time.June, 1))
	assert.Error(t, reversed.Validate())
}

func TestDisplayStatusAndCovers(t *testing.T) {
	sub := Subscription{
		Status:    SubscriptionActive,
		StartDate: ptr(day(2024, time.June, 11)),
		EndDate:   ptr(day(2024, time.July, 10)),
	}

	assert.Equal(t, "active", sub.DisplayStatus(day(2024, time.June, 20)))
	assert.Equal(t, "expiring", sub.DisplayStatus(day(2024, time.July, 3)))
	assert.Equal(t, "expiring", sub.DisplayStatus(day(2024, time.July, 10)))
	assert.Equal(t, "expired", sub.DisplayStatus(day(2024, time.July, 11)))
	assert.Equal(t, SubscriptionActive, sub.Status)

	assert.True(t, sub.Covers(day(2024, time.June, 11)))
	assert.True(t, sub.Covers(day(2024, time.July, 10)))
	assert.False(t, sub.Covers(day(2024, time.June, 10)))
	assert.False(t, sub.Covers(day(2024, time.July, 11)))

	pending := Subscription{Status: SubscriptionPending}
	assert.Equal(t, "pending", pending.DisplayStatus(day(2024, time.June, 20)))
	assert.False(t, pending.Covers(day(2024, time.June, 20)))
}

func TestImportSummaryAdd(t *testing.T) {
	var s ImportSummary
	s.Add(RowOutcome{Row: 1, Status: RowCreated})
	s.Add(RowOutcome{Row: 2, Status: RowSkipped})
	s.Add(RowOutcome{Row: 3, Status: RowFailed, ErrorKind: "InvalidInput"})

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Failed)
	assert.Len(t, s.Rows, 3)
}

func TestSmallHelpers(t *testing.T) {
	assert.Equal(t, "Omar Hassan", (&Player{FirstName: "Omar", LastName: "Hassan"}).FullName())
	assert.Equal(t, "Omar", (&Player{FirstName: "Omar"}).FullName())
	assert.True(t, AttendanceExcused.Valid())
	assert.False(t, AttendanceStatus("late").Valid())
	assert.True(t, ExpenseRent.Valid())
	assert.False(t, ExpenseCategory("food").Valid())
	assert.True(t, Operator{ID: "a", Role: RoleAdmin}.IsAdmin())
	assert.False(t, Operator{ID: "c", Role: RoleCoach}.IsAdmin())
}
