package entity

import "catering-booking/pkg/utils"

type UserRole string

const (
	RoleCustomer  UserRole = utils.RoleCustomer
	RoleAssistant UserRole = utils.RoleAssistant
	RoleAdmin     UserRole = utils.RoleAdmin
)

func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleAssistant
}

type User struct {
	Base
	Name         string   `db:"name"`
	Email        string   `db:"email"`
	PasswordHash string   `db:"password"`
	Phone        *string  `db:"phone"`
	Role         UserRole `db:"role"`
	IsActive     bool     `db:"is_active"`
}
