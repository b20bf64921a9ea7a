// Package alerts polls the SOS endpoint and raises a notification when
// pending alerts appear.
package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bmbranch/branchdesk/internal/notify"
	"github.com/bmbranch/branchdesk/pkg/client"
	"github.com/bmbranch/branchdesk/pkg/domain"
)

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 10 * time.Second

// NotificationTitle is the title of the pending-alert notification.
const NotificationTitle = "Active SOS Alert"

// Source fetches the current SOS list.
type Source interface {
	ListSOS(ctx context.Context) ([]domain.SosAlert, error)
}

// Observer receives the outcome of every poll.
type Observer interface {
	ObservePoll(active int, err error)
}

// Options tunes a Poller.
type Options struct {
	// AutoOpen asks callers to switch to the SOS view when alerts appear.
	AutoOpen bool
	// Cooldown is the minimum time between two auto-open requests.
	Cooldown time.Duration
	Observer Observer
	Log      zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Snapshot is the poller state after one poll.
type Snapshot struct {
	Alerts  []domain.SosAlert
	Pending []domain.SosAlert
	// Active is the number of pending alerts.
	Active int
	// Err is the message of the most recent failed poll, cleared by the
	// next successful one.
	Err string
	// Loaded is false until the first poll finishes.
	Loaded bool
	// Raised is set when this poll moved Active from zero to non-zero.
	Raised bool
	// PolledAt is when the poll finished.
	PolledAt time.Time
}

// HasActive reports whether any alert is pending.
func (s Snapshot) HasActive() bool { return s.Active > 0 }

// Poller keeps the last known SOS state. It never stops on failures.
type Poller struct {
	source   Source
	notifier notify.Notifier
	opts     Options

	mu       sync.Mutex
	snap     Snapshot
	lastOpen time.Time
	epoch    int // bumped by Reset
}

// New returns a poller. notifier may be nil.
func New(source Source, notifier notify.Notifier, opts Options) *Poller {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{source: source, notifier: notifier, opts: opts}
}

// Snapshot returns the state after the latest poll.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Poll fetches the SOS list once and updates the state. On failure the
// previous list is kept and the error message retained.
func (p *Poller) Poll(ctx context.Context) Snapshot {
	p.mu.Lock()
	epoch := p.epoch
	p.mu.Unlock()

	list, err := p.source.ListSOS(ctx)

	p.mu.Lock()
	if epoch != p.epoch {
		p.mu.Unlock()
		return Snapshot{}
	}
	prev := p.snap.Active
	next := p.snap
	next.Loaded = true
	next.Raised = false
	next.PolledAt = p.opts.Now()
	if err != nil {
		next.Err = client.UserMessage(err)
	} else {
		pending, _ := domain.PartitionPending(list)
		next.Alerts = list
		next.Pending = pending
		next.Active = len(pending)
		next.Err = ""
		next.Raised = prev == 0 && next.Active > 0
	}
	p.snap = next
	p.mu.Unlock()

	if p.opts.Observer != nil {
		p.opts.Observer.ObservePoll(next.Active, err)
	}
	if err != nil {
		p.opts.Log.Warn().Err(err).Msg("sos poll failed")
		return next
	}
	if next.Active > 0 {
		p.opts.Log.Debug().Int("active", next.Active).Msg("pending sos alerts")
	}
	if next.Raised {
		p.raise(next.Active)
	}
	return next
}

// Reset forgets the last known state, so the next session's first poll with
// pending alerts notifies again. Polls in flight when Reset is called do not
// update the state.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = Snapshot{}
	p.lastOpen = time.Time{}
	p.epoch++
}

func (p *Poller) raise(active int) {
	if !p.notifier.Available() {
		p.opts.Log.Debug().Msg("notifications unavailable")
		return
	}
	if err := p.notifier.Notify(NotificationTitle, NotificationBody(active)); err != nil {
		p.opts.Log.Warn().Err(err).Msg("send sos notification")
	}
}

// NotificationBody is the notification text for n pending alerts.
func NotificationBody(n int) string {
	if n == 1 {
		return "There is 1 active SOS alert requiring attention."
	}
	return fmt.Sprintf("There are %d active SOS alerts requiring attention.", n)
}

// ShouldOpen reports whether the caller should switch to the SOS view for
// snap. It is true only for a raising snapshot, only when auto-open is on,
// only when the user is elsewhere and at most once per cooldown.
func (p *Poller) ShouldOpen(snap Snapshot, viewingSOS bool) bool {
	if !p.opts.AutoOpen || !snap.Raised || viewingSOS {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.opts.Now()
	if !p.lastOpen.IsZero() && now.Sub(p.lastOpen) < p.opts.Cooldown {
		return false
	}
	p.lastOpen = now
	return true
}

// Run polls immediately and then every interval until ctx is cancelled,
// handing each snapshot to fn.
func (p *Poller) Run(ctx context.Context, interval time.Duration, fn func(Snapshot)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap := p.Poll(ctx)
		if ctx.Err() != nil {
			return
		}
		if fn != nil {
			fn(snap)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
