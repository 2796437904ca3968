package pagination

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pagedFetch(pages map[string][]string, next map[string]string) FetchFunc[string] {
	return func(_ context.Context, cursor string) ([]string, string, error) {
		return pages[cursor], next[cursor], nil
	}
}

func TestCollectAll(t *testing.T) {
	pages := map[string][]string{
		"":   {"add", "sub"},
		"p2": {"mul"},
		"p3": {"div"},
	}
	next := map[string]string{"": "p2", "p2": "p3"}

	got, err := CollectAll(context.Background(), pagedFetch(pages, next))
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "sub", "mul", "div"}, got)
}

func TestCollectAllSinglePage(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, cursor string) ([]int, string, error) {
		calls++
		assert.Empty(t, cursor)
		return []int{1, 2, 3}, "", nil
	}

	got, err := CollectAll(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 1, calls)
}

func TestCollectAllCursorLoop(t *testing.T) {
	pages := map[string][]string{"": {"a"}, "x": {"b"}}
	next := map[string]string{"": "x", "x": "x"}

	_, err := CollectAll(context.Background(), pagedFetch(pages, next))
	assert.ErrorIs(t, err, ErrCursorLoop)
}

func TestCollectAllMaxPages(t *testing.T) {
	n := 0
	fetch := func(_ context.Context, _ string) ([]int, string, error) {
		n++
		return []int{n}, string(rune('a' + n)), nil
	}

	_, err := CollectAll(context.Background(), fetch, WithMaxPages(3))
	assert.ErrorIs(t, err, ErrTooManyPages)
	assert.Equal(t, 3, n)
}

func TestCollectAllFetchError(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(_ context.Context, _ string) ([]int, string, error) {
		return nil, "", boom
	}

	_, err := CollectAll(context.Background(), fetch)
	assert.ErrorIs(t, err, boom)
}

func TestCollectAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := func(_ context.Context, _ string) ([]int, string, error) {
		t.Fatal("fetch should not be called with a cancelled context")
		return nil, "", nil
	}

	_, err := CollectAll(ctx, fetch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectorUpdate(t *testing.T) {
	c := NewCollector()
	require.True(t, c.HasMore)

	require.NoError(t, c.Update(2, "next"))
	assert.True(t, c.HasMore)
	assert.Equal(t, 2, c.TotalItems)
	assert.Equal(t, 1, c.Pages)

	require.NoError(t, c.Update(1, ""))
	assert.False(t, c.HasMore)
	assert.Equal(t, 3, c.TotalItems)
}
