package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/wavgrab/models"
	"github.com/use-agent/wavgrab/workflow"
)

// rodPage adapts a rod page to workflow.Page. Every call binds the caller's
// context, so cancelling the run interrupts in-flight waits.
type rodPage struct {
	page *rod.Page
}

// Navigate loads url and waits for the load event within timeout.
func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pp := p.page.Context(ctx)
	if err := pp.Navigate(url); err != nil {
		return categorizeError(err, "navigation to workspace failed")
	}
	if err := pp.WaitLoad(); err != nil {
		return categorizeError(err, "workspace did not finish loading")
	}
	return nil
}

func (p *rodPage) ScrollBy(ctx context.Context, dy int) error {
	_, err := p.page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, dy)
	return err
}

func (p *rodPage) ScrollHeight(ctx context.Context) (int, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// Items queries the current DOM without waiting.
func (p *rodPage) Items(ctx context.Context, selector string) ([]workflow.Item, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	items := make([]workflow.Item, len(els))
	for i, el := range els {
		items[i] = &rodElement{el: el}
	}
	return items, nil
}

// WaitFor polls for the XPath until it matches or timeout expires.
func (p *rodPage) WaitFor(ctx context.Context, xpath string, timeout time.Duration) (workflow.Item, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := p.page.Context(waitCtx).ElementX(xpath)
	if err != nil {
		// Only the stage deadline means "not found"; a cancelled run is not.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%s after %s: %w", xpath, timeout, models.ErrAffordanceNotFound)
		}
		return nil, err
	}
	return &rodElement{el: el}, nil
}

// DismissMenus clicks the document body, which closes open popovers.
func (p *rodPage) DismissMenus(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(`() => document.body.click()`)
	return err
}

// rodElement adapts a rod element to workflow.Item.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

// Click dispatches a DOM click instead of a mouse event, so overlays that
// cover the element cannot intercept it.
func (e *rodElement) Click(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.click()`)
	return err
}

// categorizeError wraps raw errors into typed RunErrors.
func categorizeError(err error, msg string) *models.RunError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewRunError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewRunError(models.ErrCodeTimeout, "run canceled", err)
	default:
		return models.NewRunError(models.ErrCodeNavigation, msg, err)
	}
}
