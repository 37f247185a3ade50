package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer_OneShotDisposeStopsTimer(t *testing.T) {
	timer := time.NewTimer(time.Hour)
	d := NewOneShotTimer(timer)
	assert.NoError(t, d.Dispose())
	assert.NoError(t, d.Dispose())
}

func TestTimer_IntervalDisposeStopsTicker(t *testing.T) {
	ticker := time.NewTicker(time.Hour)
	d := NewIntervalTimer(ticker)
	assert.NoError(t, d.Dispose())
	assert.NoError(t, d.Dispose())
}
