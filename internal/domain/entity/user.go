package entity

import "time"

// Roles válidos para User. El operador trabaja los proyectos; el admin
// además administra usuarios.
const (
	RoleAdmin    = "admin"
	RoleOperador = "operador"
)

// Estados de cuenta.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User usuario del sistema.
type User struct {
	ID           string
	Email        string
	PasswordHash string // hash bcrypt, nunca el password plano
	Name         string
	Role         string // admin, operador
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
