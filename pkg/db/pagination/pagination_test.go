package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id string
}

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-01-02T03:04:05Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
}

func TestBuildCursorPageInfo(t *testing.T) {
	rows := []*row{{id: "3"}, {id: "2"}, {id: "1"}}

	page, info := BuildCursorPageInfo(rows, 2, func(r *row) Cursor { return Cursor{ID: r.id} })
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.NotEmpty(t, info.NextPageToken)

	page, info = BuildCursorPageInfo(rows, 5, func(r *row) Cursor { return Cursor{ID: r.id} })
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
}

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10_000}.Limit())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}

func TestNewCursor(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 5, time.UTC)
	c := NewCursor(99, at)
	assert.Equal(t, "99", c.ID)
	parsed, err := time.Parse(time.RFC3339Nano, c.CreatedAt)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))
}
