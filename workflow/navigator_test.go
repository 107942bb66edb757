package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNavigator_Load(t *testing.T) {
	page := newFakePage(0)
	rec := &sleepRecorder{}
	n := &Navigator{Timeout: 30 * time.Second, Settle: 3 * time.Second, Sleep: rec.Sleep}

	ok := n.Load(context.Background(), page, "https://suno.com/create")

	assert.True(t, ok)
	assert.Equal(t, []string{"navigate:https://suno.com/create"}, page.events)
	assert.Equal(t, 1, rec.countOf(3*time.Second))
}

func TestNavigator_FailureStillSettles(t *testing.T) {
	page := newFakePage(0)
	page.navErr = errors.New("navigation timeout")
	rec := &sleepRecorder{}
	n := &Navigator{Timeout: 30 * time.Second, Settle: 3 * time.Second, Sleep: rec.Sleep}

	ok := n.Load(context.Background(), page, "https://suno.com/create")

	assert.False(t, ok)
	assert.Equal(t, 1, rec.countOf(3*time.Second))
}

func TestSleep_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, Sleep(context.Background(), 0))
}
