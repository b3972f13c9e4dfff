package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"turbotransfer/services/janitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingJanitor struct {
	sweeps atomic.Int32
}

func (c *countingJanitor) Sweep(context.Context) janitor.SweepResult {
	c.sweeps.Add(1)
	return janitor.SweepResult{}
}

func (c *countingJanitor) PurgeOlderThan(context.Context, time.Duration) int { return 0 }

func TestStartJanitorWorker_RunsSweeps(t *testing.T) {
	j := &countingJanitor{}
	w, err := StartJanitorWorker(j, time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return j.sweeps.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Stop(ctx)

	after := j.sweeps.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, j.sweeps.Load())
}

func TestStartJanitorWorker_RejectsBadInterval(t *testing.T) {
	_, err := StartJanitorWorker(&countingJanitor{}, 0, nil)
	assert.Error(t, err)
}
