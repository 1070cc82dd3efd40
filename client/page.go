package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/sqlassist/assist"
)

// DefaultRowSize is the page size of LimitAll when the descriptor has none.
const DefaultRowSize = 15

// Page is one page of rows together with the totals of the whole selection.
type Page struct {
	Totals int64 `json:"totals"`
	Pages  int64 `json:"pages"`
	Page   int   `json:"page"`
	Size   int   `json:"size"`
	Data   []Row `json:"data"`
}

// LimitAll returns one page of the rows shaped by a. Without a row size the
// page holds DefaultRowSize rows; without a page or start row it is the
// first page. An explicit start row takes precedence over the page number.
// The count and the page query run concurrently, except within WithTx where
// they run one after the other on the transaction.
func (c *Client[T]) LimitAll(ctx context.Context, a *assist.Assist) (*Page, error) {
	if a == nil {
		a = assist.New()
	} else {
		a = a.Clone()
	}
	if size, ok := a.RowSize(); !ok || size <= 0 {
		a.SetRowSize(DefaultRowSize)
	}
	start, size, _ := a.Window()
	page := &Page{Page: start/size + 1, Size: size}
	g, gctx := errgroup.WithContext(ctx)
	if c.tx {
		g.SetLimit(1)
	}
	g.Go(func() error {
		n, err := c.Count(gctx, a)
		page.Totals = n
		return err
	})
	g.Go(func() error {
		rows, err := c.query(gctx, "LimitAll", c.builder.SelectAllSQL(a))
		page.Data = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	page.Pages = (page.Totals + int64(size) - 1) / int64(size)
	if page.Data == nil {
		page.Data = []Row{}
	}
	return page, nil
}
