package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Закрытый набор имён ролей. Новые значения добавляем сюда
// и в DefaultRoles — сидер подхватит их при следующем старте.
const (
	RoleAdmin    = "admin"
	RoleUser     = "user"
	RoleManager  = "manager"
	RoleEmployee = "employee"
	RoleDriver   = "driver"
	RoleVendor   = "vendor"
)

// DefaultRoles — роли, которые сидер гарантирует в БД.
var DefaultRoles = []Role{
	{Name: RoleAdmin, Description: "Administrator with full access"},
	{Name: RoleUser, Description: "Regular user with limited access"},
	{Name: RoleManager, Description: "Manager with elevated permissions"},
	{Name: RoleEmployee, Description: "Employee with standard access"},
	{Name: RoleDriver, Description: "Driver with delivery/transport access"},
	{Name: RoleVendor, Description: "Vendor with supplier access"},
}

// IsKnownRole проверяет имя роли по закрытому перечислению.
func IsKnownRole(name string) bool {
	for _, r := range DefaultRoles {
		if r.Name == name {
			return true
		}
	}
	return false
}

type Role struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`

	Users       []User       `gorm:"many2many:user_roles" json:"-"`
	Permissions []Permission `gorm:"constraint:OnDelete:CASCADE" json:"permissions,omitempty"`
}

func (r *Role) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
