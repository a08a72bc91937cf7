package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

func TestSubscriberStoreCRUD(t *testing.T) {
	ctx := context.Background()
	defaults := domain.DefaultSubscriberDefaults()
	s := NewSubscriberStore(defaults.New(5))

	_, err := s.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sub := defaults.New(1)
	sub.Sources = []domain.SourceID{domain.SourceOKX}
	require.NoError(t, s.Upsert(ctx, sub))

	sub.Sources[0] = domain.SourceHTX
	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceID{domain.SourceOKX}, got.Sources, "store keeps its own copy")
	assert.False(t, got.UpdatedAt.IsZero())

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, int64(5), list[1].ID)

	require.NoError(t, s.Delete(ctx, 1))
	assert.ErrorIs(t, s.Delete(ctx, 1), domain.ErrNotFound)
}

func TestSubscriberDefaults(t *testing.T) {
	sub := domain.DefaultSubscriberDefaults().New(7)
	assert.Equal(t, "0.005", sub.MinAbsRate.String())
	assert.Empty(t, sub.Sources)
	assert.True(t, sub.Wants(domain.SourceBingX))
}
