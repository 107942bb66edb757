package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/use-agent/wavgrab/models"
)

// XPath stand-ins used by the fake page.
const (
	xpDownload = "download"
	xpFormat   = "format"
	xpConfirm  = "confirm"
)

// fakePage is an in-memory Page. Items are numbered from 1 in discovery
// order; clicking one "opens" its menu so WaitFor can decide which
// affordances appear for it.
type fakePage struct {
	mu sync.Mutex

	navErr error
	html   string

	// heightAt returns the content height for the n-th measurement (0-based).
	heightAt    func(n int) int
	heightCalls int
	scrollCalls int
	scrollErr   error

	// counts is the item count per discovery pass; the last value repeats.
	counts        []int
	discoverCalls int
	discoverErr   error

	// missing maps an item index to the XPath that never appears for it.
	missing map[int]string
	// clickErr maps an item index to an error returned when opening its menu.
	clickErr map[int]error

	openItem     int
	dismissCalls int
	dismissErr   error
	events       []string
}

func newFakePage(items int) *fakePage {
	return &fakePage{
		heightAt: func(int) int { return 2000 },
		counts:   []int{items},
		missing:  map[int]string{},
		clickErr: map[int]error{},
	}
}

func (p *fakePage) record(format string, args ...any) {
	p.events = append(p.events, fmt.Sprintf(format, args...))
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate:%s", url)
	return p.navErr
}

func (p *fakePage) ScrollBy(_ context.Context, dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrollCalls++
	return p.scrollErr
}

func (p *fakePage) ScrollHeight(context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := p.heightAt(p.heightCalls)
	p.heightCalls++
	return h, nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	return p.html, nil
}

func (p *fakePage) Items(_ context.Context, _ string) ([]Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.discoverErr != nil {
		return nil, p.discoverErr
	}
	n := p.counts[len(p.counts)-1]
	if p.discoverCalls < len(p.counts) {
		n = p.counts[p.discoverCalls]
	}
	p.discoverCalls++

	items := make([]Item, n)
	for i := range items {
		items[i] = &fakeItem{page: p, index: i + 1}
	}
	return items, nil
}

func (p *fakePage) WaitFor(_ context.Context, xpath string, timeout time.Duration) (Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait:%s", xpath)
	if p.missing[p.openItem] == xpath {
		return nil, fmt.Errorf("%s after %s: %w", xpath, timeout, models.ErrAffordanceNotFound)
	}
	return &fakeAffordance{page: p, name: xpath}, nil
}

func (p *fakePage) DismissMenus(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissCalls++
	p.record("dismiss")
	p.openItem = 0
	return p.dismissErr
}

func (p *fakePage) count(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type fakeItem struct {
	page  *fakePage
	index int
}

func (it *fakeItem) ScrollIntoView(context.Context) error {
	it.page.mu.Lock()
	defer it.page.mu.Unlock()
	it.page.record("into-view:%d", it.index)
	return nil
}

func (it *fakeItem) Click(context.Context) error {
	it.page.mu.Lock()
	defer it.page.mu.Unlock()
	it.page.record("open:%d", it.index)
	it.page.openItem = it.index
	return it.page.clickErr[it.index]
}

type fakeAffordance struct {
	page *fakePage
	name string
}

func (a *fakeAffordance) ScrollIntoView(context.Context) error { return nil }

func (a *fakeAffordance) Click(context.Context) error {
	a.page.mu.Lock()
	defer a.page.mu.Unlock()
	a.page.record("click:%s", a.name)
	return nil
}

type fakeSession struct {
	page    Page
	stops   int
	stopErr error
}

func (s *fakeSession) Page() Page { return s.page }

func (s *fakeSession) Stop() error {
	s.stops++
	return s.stopErr
}

// sleepRecorder is an instant SleepFunc that remembers requested durations.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) countOf(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.waits {
		if w == d {
			n++
		}
	}
	return n
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func testExporter(sleep SleepFunc) *Exporter {
	return &Exporter{
		DownloadOption:        xpDownload,
		FormatOption:          xpFormat,
		ConfirmButton:         xpConfirm,
		ScrollIntoViewDelay:   500 * time.Millisecond,
		MenuOpenDelay:         time.Second,
		StageDelay:            500 * time.Millisecond,
		DownloadOptionTimeout: 5 * time.Second,
		FormatOptionTimeout:   5 * time.Second,
		ConfirmTimeout:        10 * time.Second,
		ProcessingDelay:       2 * time.Second,
		DownloadRegisterDelay: 2 * time.Second,
		Sleep:                 sleep,
	}
}

func testEnumerator(sleep SleepFunc) *Enumerator {
	return &Enumerator{
		ItemSelector:  "button.menu",
		CountSelector: "span",
		ScrollStep:    1000,
		ScrollSettle:  time.Second,
		MaxScrolls:    50,
		Sleep:         sleep,
	}
}
