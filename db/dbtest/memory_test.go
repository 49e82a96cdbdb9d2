package dbtest

import (
	"context"
	"errors"
	"testing"

	"bookit/db"
	"bookit/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListByFieldNewestFirstWithLimit(t *testing.T) {
	m := NewMemory(
		models.Booking{ID: "a", UserID: "u1", CreatedAt: "2026-01-01T00:00:00.000000Z"},
		models.Booking{ID: "b", UserID: "u2", CreatedAt: "2026-01-02T00:00:00.000000Z"},
		models.Booking{ID: "c", UserID: "u1", CreatedAt: "2026-01-03T00:00:00.000000Z"},
		models.Booking{ID: "d", UserID: "u1", CreatedAt: "2026-01-02T00:00:00.000000Z"},
	)
	ctx := context.Background()

	got, err := m.ListByField(ctx, "user_id", "u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "d", got[1].ID)

	all, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", all[0].ID)
}

func TestUpdateMergesFields(t *testing.T) {
	m := NewMemory(models.Profile{ID: "u1", Name: "Ada"})
	ctx := context.Background()

	p, err := m.Update(ctx, "u1", map[string]any{"phone": "555"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)
	assert.Equal(t, "555", p.Phone)

	_, err = m.Update(ctx, "missing", map[string]any{"phone": "1"})
	assert.ErrorIs(t, err, db.ErrNotFound)

	p, err = m.Upsert(ctx, "u2", map[string]any{"name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "u2", p.ID)
	assert.Equal(t, 2, m.Len())
}

func TestFailWith(t *testing.T) {
	m := NewMemory[models.Profile]()
	boom := errors.New("boom")
	m.FailWith(boom)

	_, err := m.Get(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	m.FailWith(nil)
	_, err = m.Get(context.Background(), "x")
	assert.ErrorIs(t, err, db.ErrNotFound)
}
