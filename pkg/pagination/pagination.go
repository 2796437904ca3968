package pagination

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultMaxPages bounds how many pages CollectAll fetches
	DefaultMaxPages = 1000
)

var (
	// ErrCursorLoop is returned when a server repeats a cursor
	ErrCursorLoop = errors.New("pagination cursor repeated")

	// ErrTooManyPages is returned when the page bound is reached
	ErrTooManyPages = errors.New("pagination exceeded maximum page count")
)

// FetchFunc fetches the page starting at cursor and returns its items and the
// cursor of the next page ("" when there are no more pages).
type FetchFunc[T any] func(ctx context.Context, cursor string) ([]T, string, error)

// Collector tracks progress through a paginated listing
type Collector struct {
	// NextCursor holds the pagination cursor for the next page
	NextCursor string
	// HasMore indicates if there are more pages to fetch
	HasMore bool
	// TotalItems is the total number of items collected so far
	TotalItems int
	// Pages is the number of pages fetched so far
	Pages int

	seen map[string]struct{}
}

// NewCollector creates a new pagination collector
func NewCollector() *Collector {
	return &Collector{
		HasMore: true,
		seen:    make(map[string]struct{}),
	}
}

// Update records one fetched page.
func (c *Collector) Update(items int, nextCursor string) error {
	c.Pages++
	c.TotalItems += items
	c.NextCursor = nextCursor
	c.HasMore = nextCursor != ""

	if !c.HasMore {
		return nil
	}
	if _, dup := c.seen[nextCursor]; dup {
		c.HasMore = false
		return fmt.Errorf("%w: %q", ErrCursorLoop, nextCursor)
	}
	c.seen[nextCursor] = struct{}{}
	return nil
}

// Option configures CollectAll
type Option func(*options)

type options struct {
	maxPages int
}

// WithMaxPages overrides DefaultMaxPages
func WithMaxPages(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPages = n
		}
	}
}

// CollectAll fetches every page and returns the items in server order.
func CollectAll[T any](ctx context.Context, fetch FetchFunc[T], opts ...Option) ([]T, error) {
	o := options{maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(&o)
	}

	collector := NewCollector()
	var all []T

	for collector.HasMore {
		if collector.Pages >= o.maxPages {
			return nil, fmt.Errorf("%w (%d)", ErrTooManyPages, o.maxPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, next, err := fetch(ctx, collector.NextCursor)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if err := collector.Update(len(items), next); err != nil {
			return nil, err
		}
	}

	return all, nil
}
