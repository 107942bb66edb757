package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/wavgrab/models"
)

func exportFirst(t *testing.T, page *fakePage, x *Exporter) models.Outcome {
	t.Helper()
	items, err := page.Items(context.Background(), "button.menu")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	return x.Export(context.Background(), page, items[0], 1)
}

func TestExport_AllStagesSucceed(t *testing.T) {
	page := newFakePage(1)
	rec := &sleepRecorder{}
	x := testExporter(rec.Sleep)

	out := exportFirst(t, page, x)

	assert.True(t, out.Succeeded())
	assert.Equal(t, 1, out.Index)
	assert.Empty(t, out.Reason)
	assert.Equal(t, 1, page.dismissCalls)
	assert.Equal(t, []string{
		"into-view:1",
		"open:1",
		"wait:download",
		"click:download",
		"wait:format",
		"click:format",
		"wait:confirm",
		"click:confirm",
		"dismiss",
	}, page.events)
	assert.Equal(t, 2, rec.countOf(2*time.Second), "processing and register delays")
}

func TestExport_DownloadOptionMissing(t *testing.T) {
	page := newFakePage(1)
	page.missing[1] = xpDownload
	x := testExporter(noSleep)

	out := exportFirst(t, page, x)

	assert.False(t, out.Succeeded())
	assert.Equal(t, ReasonDownloadOption, out.Reason)
	assert.Equal(t, models.ErrCodeStageNotFound, out.Code)
	assert.Zero(t, page.count("wait:format"))
	assert.Zero(t, page.count("wait:confirm"))
	assert.Zero(t, page.count("click:"))
	assert.Equal(t, 1, page.dismissCalls)
}

func TestExport_FormatOptionMissing(t *testing.T) {
	page := newFakePage(1)
	page.missing[1] = xpFormat
	x := testExporter(noSleep)

	out := exportFirst(t, page, x)

	assert.Equal(t, ReasonFormatOption, out.Reason)
	assert.Equal(t, 1, page.count("click:download"))
	assert.Zero(t, page.count("wait:confirm"))
	assert.Equal(t, 1, page.dismissCalls)
}

func TestExport_ConfirmButtonMissing(t *testing.T) {
	page := newFakePage(1)
	page.missing[1] = xpConfirm
	x := testExporter(noSleep)

	out := exportFirst(t, page, x)

	assert.Equal(t, ReasonConfirmButton, out.Reason)
	assert.Equal(t, 1, page.count("click:format"))
	assert.Zero(t, page.count("click:confirm"))
	assert.Equal(t, 1, page.dismissCalls)
}

func TestExport_UnexpectedError(t *testing.T) {
	page := newFakePage(1)
	page.clickErr[1] = errors.New("node detached")
	x := testExporter(noSleep)

	out := exportFirst(t, page, x)

	assert.False(t, out.Succeeded())
	assert.Equal(t, models.ErrCodeUnexpected, out.Code)
	assert.Contains(t, out.Reason, "node detached")
	assert.Zero(t, page.count("wait:"))
	assert.Equal(t, 1, page.dismissCalls)
}

func TestExport_CleanupErrorIsSwallowed(t *testing.T) {
	page := newFakePage(1)
	page.dismissErr = errors.New("page crashed")
	x := testExporter(noSleep)

	out := exportFirst(t, page, x)

	assert.True(t, out.Succeeded())
	assert.Equal(t, 1, page.dismissCalls)
}

func TestExport_CanceledContext(t *testing.T) {
	page := newFakePage(1)
	x := testExporter(noSleep)
	items, err := page.Items(context.Background(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := x.Export(ctx, page, items[0], 1)

	assert.False(t, out.Succeeded())
	assert.Equal(t, models.ErrCodeTimeout, out.Code)
	assert.Equal(t, 1, page.dismissCalls)
}
