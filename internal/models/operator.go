package models

// Роли операторов, которые приходят в JWT.
const (
	RoleAdmin = "admin"
	RoleCoach = "coach"
)

// Operator сотрудник клуба, выполняющий операцию. Личность подтверждает внешний
// провайдер; сервис видит только идентификатор и роль из токена.
type Operator struct {
	ID   string
	Role string
}

// IsAdmin сообщает, есть ли у оператора административные права.
func (o Operator) IsAdmin() bool {
	return o.Role == RoleAdmin
}
