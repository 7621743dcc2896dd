package preload

import (
	"context"

	"github.com/charmbracelet/folio/cache"
	"github.com/charmbracelet/folio/paginate"
)

// RenderFunc renders page n of a pagination result.
type RenderFunc func(p paginate.Page, n int) string

// Warm returns a task that renders the given pages of the entry stored under
// key for variant v, skipping pages that are already rendered. It never
// paginates: if the entry is gone or holds another variant, the task does
// nothing.
func Warm(c *cache.Cache, key cache.Key, v string, pages []int, render RenderFunc) TaskFunc {
	return func(ctx context.Context) error {
		e, ok := c.Get(key)
		if !ok || e.Variant != v {
			return nil
		}
		for _, n := range pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			page, ok := e.Result.Page(n)
			if !ok || e.IsRendered(n) {
				continue
			}
			c.SetRendered(key, v, n, render(page, n))
		}
		return nil
	}
}
