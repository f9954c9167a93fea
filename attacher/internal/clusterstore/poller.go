package clusterstore

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PollerConfig contains the polling schedule
type PollerConfig struct {
	Interval      time.Duration
	MaxInterval   time.Duration
	BackoffFactor float64
}

type updater interface {
	Update(ctx context.Context) error
}

// Poller refreshes the store on a schedule, backing off while the gateway
// fails and standing by while nobody is looking
type Poller struct {
	store   updater
	cfg     PollerConfig
	logger  *zap.Logger
	visible atomic.Bool
	wake    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller; it is visible until told otherwise
func NewPoller(store updater, cfg PollerConfig, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.MaxInterval < cfg.Interval {
		cfg.MaxInterval = cfg.Interval
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		store:  store,
		cfg:    cfg,
		logger: logger.Named("poller"),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.visible.Store(true)
	return p
}

// Start runs an immediate update and then polls in the background
func (p *Poller) Start() {
	p.logger.Info("Starting cluster list poller",
		zap.Duration("interval", p.cfg.Interval),
		zap.Duration("maxInterval", p.cfg.MaxInterval))
	go p.run()
}

// Stop stops polling and waits for an in-flight update to finish
func (p *Poller) Stop() {
	p.logger.Info("Stopping cluster list poller")
	p.cancel()
	<-p.done
}

// SetVisible pauses polling while hidden. Becoming visible again triggers
// an immediate update.
func (p *Poller) SetVisible(visible bool) {
	was := p.visible.Swap(visible)
	if visible == was {
		return
	}
	p.logger.Debug("Visibility changed", zap.Bool("visible", visible))
	if visible {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
}

// Visible reports whether polling is active
func (p *Poller) Visible() bool {
	return p.visible.Load()
}

func (p *Poller) run() {
	defer close(p.done)

	interval := p.cycle(p.cfg.Interval)
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-timer.C:
			if p.visible.Load() {
				interval = p.cycle(interval)
			}
		case <-p.wake:
			interval = p.cycle(interval)
		}
		timer.Reset(interval)
	}
}

// cycle runs one update and returns the delay before the next one
func (p *Poller) cycle(current time.Duration) time.Duration {
	err := p.store.Update(p.ctx)
	if p.ctx.Err() != nil {
		return current
	}
	next := nextInterval(p.cfg, current, err != nil)
	if err != nil {
		p.logger.Debug("Update failed, backing off", zap.Duration("next", next))
	}
	return next
}

// nextInterval grows the interval after a failure and resets it after a
// success
func nextInterval(cfg PollerConfig, current time.Duration, failed bool) time.Duration {
	if !failed {
		return cfg.Interval
	}
	next := time.Duration(float64(current) * cfg.BackoffFactor)
	if next > cfg.MaxInterval || next <= 0 {
		return cfg.MaxInterval
	}
	return next
}
