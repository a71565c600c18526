package models

import "time"

// Player представляет игрока клуба. Электронная почта уникальна и хранится в нижнем регистре.
type Player struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	Area              string     `json:"area,omitempty"`
	Height            *float64   `json:"height,omitempty"`
	Weight            *float64   `json:"weight,omitempty"`
	PreferredHand     string     `json:"preferred_hand,omitempty"`
	PreferredPosition string     `json:"preferred_position,omitempty"`
	HealthConditions  string     `json:"health_conditions,omitempty"`
	TrainingGoals     string     `json:"training_goals,omitempty"`
	GuardianName      string     `json:"guardian_name,omitempty"`
	GuardianPhone     string     `json:"guardian_phone,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// FullName возвращает имя и фамилию игрока через пробел.
func (p *Player) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
