package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_LocalWindow(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	d := NewDebouncer(nil, "test:", time.Minute)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, d.Allow(ctx, "user-1"))
	assert.False(t, d.Allow(ctx, "user-1"), "second call inside the window")
	assert.True(t, d.Allow(ctx, "user-2"), "keys are independent")

	now = now.Add(61 * time.Second)
	assert.True(t, d.Allow(ctx, "user-1"), "window elapsed")
}

func TestDebouncer_ZeroDurationAlwaysAllows(t *testing.T) {
	d := NewDebouncer(nil, "test:", 0)
	for i := 0; i < 3; i++ {
		assert.True(t, d.Allow(context.Background(), "k"))
	}
}
