package models

import "time"

// AttendanceStatus отметка игрока на занятии.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid проверяет, что отметка входит в известный набор.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceExcused:
		return true
	}
	return false
}

// AttendanceKey уникальный ключ записи посещаемости.
type AttendanceKey struct {
	PlayerID          string
	ScheduleSessionID string
	SessionDate       time.Time
}

// AttendanceRecord запись посещаемости. Повторная отправка перезаписывает запись
// по ключу (player_id, schedule_session_id, session_date).
// ChargedSubscriptionID указывает абонемент, с которого за эту запись списано занятие.
type AttendanceRecord struct {
	PlayerID              string           `json:"player_id"`
	GroupID               string           `json:"group_id"`
	ScheduleSessionID     string           `json:"schedule_session_id"`
	SessionDate           time.Time        `json:"session_date"`
	Status                AttendanceStatus `json:"status"`
	Notes                 string           `json:"notes,omitempty"`
	MarkedBy              string           `json:"marked_by"`
	ChargedSubscriptionID string           `json:"charged_subscription_id,omitempty"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// Key возвращает уникальный ключ записи.
func (r *AttendanceRecord) Key() AttendanceKey {
	return AttendanceKey{
		PlayerID:          r.PlayerID,
		ScheduleSessionID: r.ScheduleSessionID,
		SessionDate:       r.SessionDate,
	}
}

// AttendanceMark отметка одного игрока в пакете отметок.
type AttendanceMark struct {
	PlayerID string           `json:"player_id" validate:"required"`
	Status   AttendanceStatus `json:"status" validate:"required"`
	Notes    string           `json:"notes,omitempty"`
}

// AttendanceBatch отметки по одному занятию расписания на одну дату.
type AttendanceBatch struct {
	GroupID           string
	ScheduleSessionID string
	SessionDate       time.Time
	MarkedBy          string
	Marks             []AttendanceMark
}

// Предупреждения о балансе, которые возвращаются тренеру. Они не блокируют отметку.
const (
	BalanceWarningLow       = "low_balance"
	BalanceWarningZero      = "zero_balance"
	BalanceWarningOverdrawn = "overdrawn"
)

// LowBalanceThreshold остаток, начиная с которого выдаётся предупреждение low_balance.
const LowBalanceThreshold = 2

// BalanceResult итог по одному игроку после отправки отметок.
// SessionsRemaining равен nil, если у игрока нет активного абонемента.
type BalanceResult struct {
	PlayerID          string           `json:"player_id"`
	Status            AttendanceStatus `json:"status"`
	SubscriptionID    string           `json:"subscription_id,omitempty"`
	SessionsRemaining *int             `json:"sessions_remaining"`
	Warning           string           `json:"warning,omitempty"`
}
