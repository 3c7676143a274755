package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/seedbed-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedSeed(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, slug string) *types.Seed {
	tb.Helper()
	s := &types.Seed{
		ID:     uuid.New(),
		UserID: userID,
		Slug:   slug,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed seed row: %v", err)
	}
	return s
}

func SeedTransaction(tb testing.TB, ctx context.Context, tx *gorm.DB, seedID uuid.UUID, txType types.TransactionType, payload string, at time.Time) *types.SeedTransaction {
	tb.Helper()
	row := &types.SeedTransaction{
		ID:        uuid.New(),
		SeedID:    seedID,
		Type:      txType,
		Payload:   datatypes.JSON([]byte(payload)),
		CreatedAt: at,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed transaction: %v", err)
	}
	return row
}

func SeedAutomation(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Automation {
	tb.Helper()
	a := &types.Automation{
		ID:      uuid.New(),
		Name:    name,
		Enabled: true,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed automation: %v", err)
	}
	return a
}

func SeedCategory(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, parentID *uuid.UUID, name, path string) *types.Category {
	tb.Helper()
	c := &types.Category{
		ID:       uuid.New(),
		UserID:   userID,
		ParentID: parentID,
		Name:     name,
		Path:     path,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}
