// Package clock предоставляет внедряемый источник текущего времени и операции
// над календарными днями. Все даты абонементов хранятся как полночь UTC,
// а "сегодня" вычисляется в часовом поясе клуба.
package clock

import (
	"fmt"
	"strings"
	"time"
)

// Clock источник текущего времени.
type Clock interface {
	Now() time.Time
}

// Real системные часы в заданном часовом поясе.
type Real struct {
	Loc *time.Location
}

// NewReal создаёт системные часы для часового пояса name; пустое имя означает UTC.
func NewReal(name string) (Real, error) {
	const op = "clock.NewReal"
	if name == "" {
		return Real{Loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Real{}, fmt.Errorf("%s: %w", op, err)
	}
	return Real{Loc: loc}, nil
}

func (r Real) Now() time.Time {
	if r.Loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(r.Loc)
}

// Fixed часы, всегда возвращающие одно и то же время. Используются в тестах.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}

// Day отбрасывает время суток: календарный день t в его собственном часовом
// поясе, представленный как полночь UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today текущий календарный день по часам c.
func Today(c Clock) time.Time {
	return Day(c.Now())
}

// Date конструктор календарного дня.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddDays сдвигает календарный день на n дней.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// WindowEnd последний день окна длиной days, включая первый день:
// окно из 30 дней, начинающееся 2024-06-11, заканчивается 2024-07-10.
func WindowEnd(start time.Time, days int) time.Time {
	if days < 1 {
		return start
	}
	return AddDays(start, days-1)
}

// dateLayouts форматы дат, принимаемые из импорта и запросов.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseDay разбирает календарный день в одном из поддерживаемых форматов.
func ParseDay(raw string) (time.Time, error) {
	const op = "clock.ParseDay"
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%s: empty date", op)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: unsupported date %q", op, raw)
}
