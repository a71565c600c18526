package models

// PaymentImportRow строка исторического импорта платежей.
// Поля приходят строками, чтобы валидировать и разбирать их построчно.
type PaymentImportRow struct {
	Email   string `json:"email" validate:"required"`
	Date    string `json:"date" validate:"required"`
	Amount  string `json:"amount" validate:"required"`
	Package string `json:"package" validate:"required"`
	Method  string `json:"method" validate:"required"`
}

// PlayerImportRow строка импорта игроков.
type PlayerImportRow struct {
	FirstName         string `json:"first_name" validate:"required"`
	LastName          string `json:"last_name" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	Phone             string `json:"phone,omitempty"`
	DateOfBirth       string `json:"date_of_birth,omitempty"`
	Area              string `json:"area,omitempty"`
	Height            string `json:"height,omitempty" validate:"omitempty,numeric"`
	Weight            string `json:"weight,omitempty" validate:"omitempty,numeric"`
	PreferredHand     string `json:"preferred_hand,omitempty"`
	PreferredPosition string `json:"preferred_position,omitempty"`
	HealthConditions  string `json:"health_conditions,omitempty"`
	TrainingGoals     string `json:"training_goals,omitempty"`
	GuardianName      string `json:"guardian_name,omitempty"`
	GuardianPhone     string `json:"guardian_phone,omitempty"`
}

// RowStatus итог обработки одной строки импорта.
type RowStatus string

const (
	RowCreated RowStatus = "created"
	RowSkipped RowStatus = "skipped"
	RowFailed  RowStatus = "failed"
)

// RowOutcome результат по строке. Row считается с 1 и не учитывает заголовок.
type RowOutcome struct {
	Row            int       `json:"row"`
	Status         RowStatus `json:"status"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	PlayerID       string    `json:"player_id,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	PaymentID      string    `json:"payment_id,omitempty"`
}

// ImportSummary сводка по всему пакету строк. Частичный успех считается нормальным исходом.
type ImportSummary struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Rows      []RowOutcome `json:"rows"`
}

// Add учитывает итог строки в сводке.
func (s *ImportSummary) Add(o RowOutcome) {
	s.Total++
	switch o.Status {
	case RowCreated:
		s.Succeeded++
	case RowSkipped:
		s.Skipped++
	case RowFailed:
		s.Failed++
	}
	s.Rows = append(s.Rows, o)
}
