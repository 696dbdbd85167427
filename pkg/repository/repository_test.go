package repository

import (
	"context"
	"testing"

	"github.com/smallbiznis/shelfwise/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type shelf struct {
	ID     int64 `gorm:"primaryKey"`
	Room   string
	Active bool
}

func TestStoreRoundTrip(t *testing.T) {
	db := dbtest.Open(t, &shelf{})
	ctx := context.Background()
	repo := ProvideStore[shelf](db)

	require.NoError(t, repo.BatchCreate(ctx, []*shelf{
		{ID: 1, Room: "north", Active: true},
		{ID: 2, Room: "north"},
		{ID: 3, Room: "south", Active: true},
	}))

	north, err := repo.Find(ctx, &shelf{Room: "north"}, OrderBy("id desc"))
	require.NoError(t, err)
	require.Len(t, north, 2)
	assert.Equal(t, int64(2), north[0].ID)

	active, err := repo.Count(ctx, nil, Where("active = ?", true))
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	missing, err := repo.FindOne(ctx, &shelf{Room: "east"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStoreWithTrxRollsBack(t *testing.T) {
	db := dbtest.Open(t, &shelf{})
	ctx := context.Background()
	repo := ProvideStore[shelf](db)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTrx(tx).Create(ctx, &shelf{ID: 9, Room: "annex"}); err != nil {
			return err
		}
		return gorm.ErrInvalidData
	})
	require.ErrorIs(t, err, gorm.ErrInvalidData)

	count, err := repo.Count(ctx, &shelf{})
	require.NoError(t, err)
	assert.Zero(t, count)
}
