package repo

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"otec/internal/models"
)

var testDBSeq atomic.Int64

// newTestDB — свежая in-memory sqlite на каждый тест.
// cache=shared, иначе каждый коннекшен из пула получит свою БД.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Permission{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seededStores(t *testing.T) (*UserStore, *RoleStore, *PermissionStore) {
	t.Helper()
	db := newTestDB(t)
	rs := NewRoleStore(db)
	if err := rs.Seed(context.Background()); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	return NewUserStore(db, 4), rs, NewPermissionStore(db) // низкая стоимость bcrypt, чтобы тесты не ползали
}

func mustRole(t *testing.T, rs *RoleStore, name string) *models.Role {
	t.Helper()
	r, err := rs.FindByName(context.Background(), name)
	if err != nil {
		t.Fatalf("find role %s: %v", name, err)
	}
	if r == nil {
		t.Fatalf("role %s not seeded", name)
	}
	return r
}
