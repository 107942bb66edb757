package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Enumerator loads the full item list of an infinite-scroll page and finds
// the per-item menu affordances.
type Enumerator struct {
	// ItemSelector is the CSS selector matching item menu buttons.
	ItemSelector string

	// CountSelector is the CSS selector scanned for the "N songs" counter.
	CountSelector string

	ScrollStep   int
	ScrollSettle time.Duration
	MaxScrolls   int

	Sleep SleepFunc
}

// ScrollResult reports how scroll stabilization ended.
type ScrollResult struct {
	// Iterations is the number of scroll-and-measure rounds performed.
	Iterations int

	// Stable is true when two consecutive measurements were equal, false
	// when MaxScrolls was reached first.
	Stable bool

	// Height is the last measured content height.
	Height int
}

// StabilizeScroll scrolls until the content height stops changing or
// MaxScrolls rounds have run.
//
// This is a heuristic: content that grows slower than ScrollSettle can be
// declared stable before it is fully loaded.
func (e *Enumerator) StabilizeScroll(ctx context.Context, page Page) (ScrollResult, error) {
	slog.Info("scrolling to load all items", "maxScrolls", e.MaxScrolls)

	last, err := page.ScrollHeight(ctx)
	if err != nil {
		return ScrollResult{}, fmt.Errorf("measure scroll height: %w", err)
	}

	res := ScrollResult{Height: last}
	for res.Iterations < e.MaxScrolls {
		if err := page.ScrollBy(ctx, e.ScrollStep); err != nil {
			return res, fmt.Errorf("scroll step %d: %w", res.Iterations+1, err)
		}
		if err := e.Sleep(ctx, e.ScrollSettle); err != nil {
			return res, err
		}
		res.Iterations++

		height, err := page.ScrollHeight(ctx)
		if err != nil {
			return res, fmt.Errorf("measure scroll height: %w", err)
		}
		res.Height = height

		if height == last {
			res.Stable = true
			slog.Info("all items loaded", "scrolls", res.Iterations, "height", height)
			return res, nil
		}
		last = height
	}

	slog.Warn("reached maximum scroll attempts", "scrolls", res.Iterations, "height", res.Height)
	return res, nil
}

// DiscoverItems returns the item menu handles of the current DOM snapshot,
// in document order. The handles are invalidated by the next DOM mutation.
func (e *Enumerator) DiscoverItems(ctx context.Context, page Page) ([]Item, error) {
	items, err := page.Items(ctx, e.ItemSelector)
	if err != nil {
		return nil, fmt.Errorf("query item menus: %w", err)
	}
	slog.Debug("discovered item menus", "count", len(items))
	return items, nil
}

var countPattern = regexp.MustCompile(`^(\d[\d,]*)\s+songs?$`)

// TotalReported reads the page's own item counter. It is informational and
// is never reconciled against the discovered items.
func (e *Enumerator) TotalReported(ctx context.Context, page Page) (int, bool) {
	html, err := page.HTML(ctx)
	if err != nil {
		slog.Warn("could not read page for item count", "error", err)
		return 0, false
	}
	n, ok := parseTotalCount(html, e.CountSelector)
	if !ok {
		slog.Warn("could not determine exact item count")
		return 0, false
	}
	slog.Info("total items in workspace", "count", n)
	return n, true
}

func parseTotalCount(html, selector string) (int, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false
	}

	total, found := 0, false
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		m := countPattern.FindStringSubmatch(strings.ToLower(text))
		if m == nil {
			return true
		}
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			return true
		}
		total, found = n, true
		return false
	})
	return total, found
}
