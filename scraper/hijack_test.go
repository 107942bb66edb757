package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/wavgrab/models"
)

func TestIsTrackerHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"google-analytics.com", true},
		{"www.google-analytics.com", true},
		{"static.Hotjar.com", true},
		{"suno.com", false},
		{"cdn1.suno.ai", false},
		{"notsegment.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, isTrackerHost(tt.host))
		})
	}
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, models.ErrCodeTimeout, categorizeError(context.DeadlineExceeded, "x").Code)
	assert.Equal(t, models.ErrCodeTimeout, categorizeError(context.Canceled, "x").Code)
	assert.Equal(t, models.ErrCodeNavigation, categorizeError(errors.New("net::ERR"), "x").Code)

	err := categorizeError(context.DeadlineExceeded, "load")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
