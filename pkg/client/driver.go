package client

import (
	"context"
	"time"
)

// DefaultTickInterval is the driver's default reconciliation rate.
const DefaultTickInterval = 50 * time.Millisecond

// Driver runs the per-tick loop for callers that do not have one of their
// own: it calls Update at a fixed rate and forces teardown when its context
// ends.
type Driver struct {
	client   *Client
	interval time.Duration
}

// NewDriver creates a driver for the client. A non-positive interval uses
// DefaultTickInterval.
func NewDriver(c *Client, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Driver{client: c, interval: interval}
}

// Run ticks the client until ctx is done, then shuts it down forcibly and
// returns ctx's error. It blocks; run it on the goroutine that owns the
// client.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.client.Shutdown()
			return ctx.Err()
		case <-ticker.C:
			d.client.Update()
		}
	}
}
