package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"otec/internal/models"
)

type RoleStore struct{ db *gorm.DB }

func NewRoleStore(db *gorm.DB) *RoleStore { return &RoleStore{db: db} }

func (s *RoleStore) FindAll(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := s.db.WithContext(ctx).Order("name").Find(&roles).Error
	return roles, err
}

func (s *RoleStore) FindByID(ctx context.Context, id string) (*models.Role, error) {
	var r models.Role
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RoleStore) FindByName(ctx context.Context, name string) (*models.Role, error) {
	var r models.Role
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RoleStore) Create(ctx context.Context, r *models.Role) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *RoleStore) Update(ctx context.Context, id string, name, description *string) (*models.Role, error) {
	updates := map[string]any{}
	if name != nil {
		updates["name"] = *name
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Role{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.FindByID(ctx, id)
}

// Delete удаляет роль; её permissions уходят каскадом (FK).
func (s *RoleStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Select("Permissions").Where("id = ?", id).Delete(&models.Role{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Seed досоздаёт отсутствующие роли из фиксированного перечисления.
// Идемпотентен: повторный вызов ничего не дублирует. Вызывается
// явно при старте процесса, до приёма трафика.
func (s *RoleStore) Seed(ctx context.Context) error {
	for _, def := range models.DefaultRoles {
		existing, err := s.FindByName(ctx, def.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		r := models.Role{Name: def.Name, Description: def.Description}
		if err := s.Create(ctx, &r); err != nil {
			return err
		}
	}
	return nil
}
