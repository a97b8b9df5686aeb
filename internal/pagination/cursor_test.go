package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagedItem struct {
	ID        string
	CreatedAt time.Time
}

func TestEncodeDecodeCursor_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 5, 1, 12, 30, 0, 123456789, time.UTC)

	encoded := EncodeCursor("item-42", ts)
	require.NotEmpty(t, encoded)

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "item-42", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(ts))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Equal(t, "", EncodeCursor("", time.Now()))
}

func TestDecodeCursor_Empty(t *testing.T) {
	cursor, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, raw := range []string{"not-base64!!!", "bm9zZXBhcmF0b3I=", "aWR8bm90LWEtdGltZQ=="} {
		_, err := DecodeCursor(raw)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-5))
	assert.Equal(t, 50, NormalizeLimit(50))
	assert.Equal(t, MaxLimit, NormalizeLimit(5000))
}

func TestNewPage(t *testing.T) {
	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	items := []pagedItem{
		{ID: "a", CreatedAt: ts},
		{ID: "b", CreatedAt: ts.Add(time.Minute)},
	}

	full := NewPage(items, 2, func(i pagedItem) string { return i.ID }, func(i pagedItem) time.Time { return i.CreatedAt })
	assert.True(t, full.HasMore)
	assert.NotEmpty(t, full.Cursor)

	partial := NewPage(items, 5, func(i pagedItem) string { return i.ID }, func(i pagedItem) time.Time { return i.CreatedAt })
	assert.False(t, partial.HasMore)
	assert.Empty(t, partial.Cursor)

	empty := NewPage(nil, 5, func(i pagedItem) string { return i.ID }, func(i pagedItem) time.Time { return i.CreatedAt })
	assert.False(t, empty.HasMore)
}
