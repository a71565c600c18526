// Package models содержит доменные сущности бэк-офиса клуба: пакеты занятий,
// игроков, абонементы, платежи, посещаемость и расходы, а также таблицы
// допустимых переходов статусов и формы строк для импорта.
package models

import "github.com/shopspring/decimal"

// Package описывает справочный пакет занятий, из которого создаётся абонемент.
// Ядро никогда не изменяет пакеты, только читает их.
type Package struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SessionCount int             `json:"session_count"` // Количество занятий (>= 1)
	Price        decimal.Decimal `json:"price"`         // Цена пакета
	ValidityDays int             `json:"validity_days"` // Срок действия в календарных днях (>= 1)
	SortOrder    int             `json:"sort_order"`
	IsActive     bool            `json:"is_active"`
}
