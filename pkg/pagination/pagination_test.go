package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, MaxLimit, NormalizeLimit(500))
	require.Equal(t, 10, NormalizeLimit(10))
	require.Equal(t, 11, LimitWithBuffer(10))
	require.Equal(t, 0, NormalizeOffset(-4))
}

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	cursor := Cursor{CreatedAt: time.Date(2024, 5, 1, 10, 30, 0, 123, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	require.True(t, cursor.CreatedAt.Equal(parsed.CreatedAt))
	require.Equal(t, cursor.ID, parsed.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, empty)

	_, err = ParseCursor("!!!")
	require.Error(t, err)
}

func TestTrim(t *testing.T) {
	t.Parallel()

	type row struct {
		id uuid.UUID
		at time.Time
	}
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Minute)}, {uuid.New(), now.Add(-2 * time.Minute)}}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	kept, next := Trim(rows, 2, cursorOf)
	require.Len(t, kept, 2)
	require.NotEmpty(t, next)

	parsed, err := ParseCursor(next)
	require.NoError(t, err)
	require.Equal(t, rows[1].id, parsed.ID)

	all, none := Trim(rows, 5, cursorOf)
	require.Len(t, all, 3)
	require.Empty(t, none)
}
