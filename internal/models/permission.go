package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission — CRUD-флаги роли на конкретную фичу модуля.
// Уникальность (role_id, module_name, feature) держит схема,
// иначе повторные вызовы defaults плодили бы дубли.
type Permission struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RoleID     string `gorm:"type:uuid;not null;uniqueIndex:idx_role_module_feature" json:"roleId"`
	ModuleName string `gorm:"size:128;not null;uniqueIndex:idx_role_module_feature" json:"moduleName"`
	Feature    string `gorm:"size:128;not null;uniqueIndex:idx_role_module_feature" json:"feature"`

	CanView   bool `gorm:"default:false" json:"canView"`
	CanAdd    bool `gorm:"default:false" json:"canAdd"`
	CanEdit   bool `gorm:"default:false" json:"canEdit"`
	CanDelete bool `gorm:"default:false" json:"canDelete"`
}

func (p *Permission) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
