package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questfuel/api/models"
)

func TestFoodCreateAndBarcode(t *testing.T) {
	db := newTestDB(t)
	svc := NewFoodService(db)
	ctx := context.Background()
	u := createUser(t, db, "chef@example.com")
	other := createUser(t, db, "other@example.com")

	_, err := svc.Create(ctx, u.ID, FoodInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, u.ID, FoodInput{Name: "Bad", Nutrients: models.Nutrients{Fat: -1}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	food, err := svc.Create(ctx, u.ID, FoodInput{Name: "Protein Bar", Barcode: "4001234", Nutrients: models.Nutrients{Kcal: 210, Protein: 20}})
	require.NoError(t, err)
	assert.Equal(t, "protein-bar", food.Slug)
	assert.Equal(t, defaultServingSize, food.ServingSize)
	require.NotNil(t, food.OwnerID)
	assert.Equal(t, u.ID, *food.OwnerID)

	_, err = svc.Create(ctx, u.ID, FoodInput{Name: "Copy", Barcode: "4001234"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := svc.ByBarcode(ctx, u.ID, "4001234")
	require.NoError(t, err)
	assert.Equal(t, food.ID, got.ID)
	_, err = svc.ByBarcode(ctx, other.ID, "4001234")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ByBarcode(ctx, u.ID, "0000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFoodSearchAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewFoodService(db)
	ctx := context.Background()
	u := createUser(t, db, "a@example.com")
	other := createUser(t, db, "b@example.com")

	createFood(t, db, nil, "Orange Juice", models.Nutrients{Kcal: 45})
	createFood(t, db, nil, "100% Apple Juice", models.Nutrients{Kcal: 46})
	createFood(t, db, &u.ID, "Homemade juice", models.Nutrients{Kcal: 40})
	createFood(t, db, &other.ID, "Other juice", models.Nutrients{Kcal: 40})

	found, err := svc.Search(ctx, u.ID, "JUICE")
	require.NoError(t, err)
	assert.Len(t, found, 3)
	for _, f := range found {
		assert.NotEqual(t, "Other juice", f.Name)
	}

	found, err = svc.Search(ctx, u.ID, "%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "100% Apple Juice", found[0].Name)

	_, err = svc.Search(ctx, u.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	page, total, err := svc.List(ctx, u.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.True(t, page[0].IsPublic)
	assert.True(t, page[1].IsPublic)

	page, _, err = svc.List(ctx, u.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Homemade juice", page[0].Name)
}
