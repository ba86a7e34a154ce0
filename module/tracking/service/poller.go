package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

const DefaultPollInterval = 15 * time.Second

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFunc func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type RefreshFunc func(ctx context.Context, deviceID string)

// PollingSession is the running refresh loop of one view.
type PollingSession struct {
	DeviceID  string        `json:"device_id"`
	Interval  time.Duration `json:"interval"`
	StartedAt time.Time     `json:"started_at"`

	ticker Ticker
	done   chan struct{}
}

// Poller owns at most one PollingSession. Start always stops the previous
// session first, so there is never more than one live ticker.
type Poller struct {
	interval  time.Duration
	newTicker TickerFunc
	refresh   RefreshFunc
	logger    *slog.Logger

	mu      sync.Mutex
	session *PollingSession
	active  int
}

func NewPoller(interval time.Duration, refresh RefreshFunc, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval:  interval,
		newTicker: NewTimeTicker,
		refresh:   refresh,
		logger:    logger,
	}
}

// Start begins polling deviceID when it is online. Any previous session is
// stopped either way. It reports whether a session is now running.
func (p *Poller) Start(deviceID string, status domain.DeviceStatus) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	if deviceID == "" || status != domain.DeviceOnline {
		return false
	}

	s := &PollingSession{
		DeviceID:  deviceID,
		Interval:  p.interval,
		StartedAt: time.Now(),
		ticker:    p.newTicker(p.interval),
		done:      make(chan struct{}),
	}
	p.session = s
	p.active++
	p.logger.Debug("polling started", "device_id", deviceID, "interval", p.interval)

	go p.run(s)
	return true
}

// Stop cancels the running session, if any. The ticker is stopped before
// Stop returns; a refresh already running is left to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if p.session == nil {
		return
	}
	p.session.ticker.Stop()
	close(p.session.done)
	p.active--
	p.logger.Debug("polling stopped", "device_id", p.session.DeviceID)
	p.session = nil
}

func (p *Poller) run(s *PollingSession) {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C():
			select {
			case <-s.done:
				return
			default:
			}
			p.refresh(context.Background(), s.DeviceID)
		}
	}
}

func (p *Poller) Session() (PollingSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return PollingSession{}, false
	}
	return PollingSession{
		DeviceID:  p.session.DeviceID,
		Interval:  p.session.Interval,
		StartedAt: p.session.StartedAt,
	}, true
}

// ActiveTimers reports how many tickers are live; it is 0 or 1.
func (p *Poller) ActiveTimers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
