package netmon

import (
	"context"
	"time"
)

// Prober checks backend reachability.
type Prober interface {
	Ping(ctx context.Context) error
}

// ProbeLoop periodically probes the backend and feeds the result to the
// monitor as a connectivity signal. It stands in for platform connectivity
// events on hosts that do not deliver any.
type ProbeLoop struct {
	monitor          *Monitor
	prober           Prober
	interval         time.Duration
	shutdownComplete chan struct{}
}

// NewProbeLoop constructs a ProbeLoop.
func NewProbeLoop(monitor *Monitor, prober Prober, interval time.Duration) *ProbeLoop {
	return &ProbeLoop{
		monitor:          monitor,
		prober:           prober,
		interval:         interval,
		shutdownComplete: make(chan struct{}),
	}
}

// Start launches the probe loop. It should be called in a goroutine.
func (p *ProbeLoop) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer func() {
		ticker.Stop()
		close(p.shutdownComplete)
	}()

	for {
		err := p.prober.Ping(ctx)
		p.monitor.SetOnline(ctx, err == nil)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until the loop has stopped.
func (p *ProbeLoop) Wait() {
	<-p.shutdownComplete
}
