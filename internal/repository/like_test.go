package repository

import (
	"context"
	"testing"

	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository_Toggle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	u1 := testutil.CreateUser(t, db, "user1", "password")
	u2 := testutil.CreateUser(t, db, "user2", "password")
	m1 := testutil.CreateMessage(t, db, u2.ID, "one")
	m2 := testutil.CreateMessage(t, db, u2.ID, "two")

	require.NoError(t, repo.Like(ctx, u1.ID, m1.ID))
	require.NoError(t, repo.Like(ctx, u1.ID, m1.ID))

	liked, err := repo.IsLiked(ctx, u1.ID, m1.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	ids, err := repo.LikedMessageIDs(ctx, u1.ID, []uint{m1.ID, m2.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{m1.ID}, ids)

	empty, err := repo.LikedMessageIDs(ctx, u1.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, repo.Unlike(ctx, u1.ID, m1.ID))
	liked, err = repo.IsLiked(ctx, u1.ID, m1.ID)
	require.NoError(t, err)
	assert.False(t, liked)
}
