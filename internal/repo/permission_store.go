package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"otec/internal/models"
)

type PermissionStore struct{ db *gorm.DB }

func NewPermissionStore(db *gorm.DB) *PermissionStore { return &PermissionStore{db: db} }

// FindByRoleID — permissions роли, стабильно упорядоченные
// по модулю и фиче (так их группирует UI).
func (s *PermissionStore) FindByRoleID(ctx context.Context, roleID string) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.db.WithContext(ctx).
		Where("role_id = ?", roleID).
		Order("module_name, feature").
		Find(&perms).Error
	return perms, err
}

// FlagPatch — точечное обновление CRUD-флагов одной записи.
type FlagPatch struct {
	CanView   *bool
	CanAdd    *bool
	CanEdit   *bool
	CanDelete *bool
}

func (s *PermissionStore) UpdateOne(ctx context.Context, id string, patch FlagPatch) (*models.Permission, error) {
	updates := map[string]any{}
	if patch.CanView != nil {
		updates["can_view"] = *patch.CanView
	}
	if patch.CanAdd != nil {
		updates["can_add"] = *patch.CanAdd
	}
	if patch.CanEdit != nil {
		updates["can_edit"] = *patch.CanEdit
	}
	if patch.CanDelete != nil {
		updates["can_delete"] = *patch.CanDelete
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Permission{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	var p models.Permission
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// BulkReplace — деструктивная замена: стираем все permissions роли
// и вставляем присланный набор целиком, в одной транзакции. Частичный
// список молча удаляет то, чего в нём нет, — диффа нет сознательно.
func (s *PermissionStore) BulkReplace(ctx context.Context, roleID string, perms []models.Permission) ([]models.Permission, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&models.Permission{}).Error; err != nil {
			return err
		}
		for i := range perms {
			perms[i].ID = ""
			perms[i].RoleID = roleID
		}
		if len(perms) == 0 {
			return nil
		}
		return tx.Create(&perms).Error
	})
	if err != nil {
		return nil, err
	}
	return s.FindByRoleID(ctx, roleID)
}

// defaultPermissions — стартовый набор для новой роли, все флаги включены.
var defaultPermissions = []models.Permission{
	{ModuleName: "Dashboard", Feature: "Customise Dashboard"},
	{ModuleName: "Insights", Feature: "Report download"},
	{ModuleName: "Opportunities", Feature: "Add to another job"},
	{ModuleName: "Opportunities", Feature: "Applications (Candidates)"},
	{ModuleName: "Opportunities", Feature: "Approve / decline a new requisition"},
	{ModuleName: "Opportunities", Feature: "Assign / Change Primary Recruiter"},
	{ModuleName: "Opportunities", Feature: "Change Interview Stage"},
	{ModuleName: "Opportunities", Feature: "Change job status"},
}

// CreateDefaults вставляет стартовый набор с полным CRUD-доступом.
// Уже существующие (role, module, feature) пропускаем, чтобы повторный
// вызов не упирался в уникальный индекс.
func (s *PermissionStore) CreateDefaults(ctx context.Context, roleID string) ([]models.Permission, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range defaultPermissions {
			var count int64
			if err := tx.Model(&models.Permission{}).
				Where("role_id = ? AND module_name = ? AND feature = ?", roleID, def.ModuleName, def.Feature).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			p := models.Permission{
				RoleID:     roleID,
				ModuleName: def.ModuleName,
				Feature:    def.Feature,
				CanView:    true,
				CanAdd:     true,
				CanEdit:    true,
				CanDelete:  true,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.FindByRoleID(ctx, roleID)
}
