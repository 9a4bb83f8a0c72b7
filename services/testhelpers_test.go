package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/questfuel/api/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createFood(t *testing.T, db *gorm.DB, owner *string, name string, n models.Nutrients) *models.Food {
	t.Helper()
	f := &models.Food{
		OwnerID:     owner,
		Name:        name,
		Kcal:        n.Kcal,
		Protein:     n.Protein,
		Carbs:       n.Carbs,
		Fat:         n.Fat,
		Fiber:       n.Fiber,
		Sugar:       n.Sugar,
		Sodium:      n.Sodium,
		ServingSize: "100g",
		IsPublic:    owner == nil,
	}
	require.NoError(t, db.Create(f).Error)
	return f
}

func userXP(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", userID).Error)
	return u.XP
}

func ledgerTotal(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var sum int64
	require.NoError(t, db.Model(&models.XPLog{}).Select("COALESCE(SUM(amount), 0)").Where("user_id = ?", userID).Scan(&sum).Error)
	return sum
}

func ptr[T any](v T) *T { return &v }
