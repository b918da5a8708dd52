package clipboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"quickclip/internal/fingerprint"
	"quickclip/internal/history"
	"quickclip/pkg/types"
)

// State is the poller lifecycle state.
type State int

const (
	StateIdle      State = iota // no timer armed
	StateSampling               // a cycle is reading the clipboard
	StateScheduled              // timer armed for the next cycle
)

func (s State) String() string {
	switch s {
	case StateSampling:
		return "sampling"
	case StateScheduled:
		return "scheduled"
	default:
		return "idle"
	}
}

// PollConfig controls the adaptive interval.
type PollConfig struct {
	Base      time.Duration
	Max       time.Duration
	Factor    float64
	Threshold int // quiet cycles tolerated before the interval grows
}

// DefaultPollConfig returns 1s base, 5s max, 1.5 factor, threshold 5.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Base:      1000 * time.Millisecond,
		Max:       5000 * time.Millisecond,
		Factor:    1.5,
		Threshold: 5,
	}
}

func (c PollConfig) withDefaults() PollConfig {
	d := DefaultPollConfig()
	if c.Base <= 0 {
		c.Base = d.Base
	}
	if c.Max <= 0 {
		c.Max = d.Max
	}
	if c.Max < c.Base {
		c.Max = c.Base
	}
	if c.Factor < 1 {
		c.Factor = d.Factor
	}
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	return c
}

// Sink receives novel payloads. *history.Store implements it.
type Sink interface {
	Append(ctx context.Context, p types.Payload) (history.AppendResult, error)
	Busy() bool
}

// Poller samples the clipboard on a single re-armed timer. Each Poller owns
// its own schedule; instances share nothing.
type Poller struct {
	acc     Accessor
	sink    Sink
	counter ChangeCounter
	cfg     PollConfig
	log     *slog.Logger

	mu        sync.Mutex
	state     State
	gen       uint64
	ctx       context.Context
	stopWatch func() bool
	timer     *time.Timer
	interval  time.Duration
	quiet     int
	lastText  fingerprint.Fingerprint
	lastImage fingerprint.Fingerprint
	lastCount int
	hasCount  bool
}

// NewPoller creates an idle poller. counter may be nil.
func NewPoller(acc Accessor, sink Sink, counter ChangeCounter, cfg PollConfig) *Poller {
	cfg = cfg.withDefaults()
	return &Poller{
		acc:      acc,
		sink:     sink,
		counter:  counter,
		cfg:      cfg,
		log:      slog.Default().With("component", "poller"),
		interval: cfg.Base,
	}
}

// Start arms the first cycle immediately. The poller stops on its own when
// ctx is done. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return
	}
	p.gen++
	p.ctx = ctx
	p.interval = p.cfg.Base
	p.quiet = 0
	p.stopWatch = context.AfterFunc(ctx, p.Stop)
	p.armLocked(0)
	p.log.Debug("poller started", "base", p.cfg.Base, "max", p.cfg.Max)
}

// Stop disarms the timer. A cycle already reading the clipboard is allowed
// to finish; its result is discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateIdle {
		return
	}
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.stopWatch != nil {
		p.stopWatch()
		p.stopWatch = nil
	}
	p.state = StateIdle
	p.log.Debug("poller stopped")
}

// Reschedule re-arms a pending timer with the current interval.
func (p *Poller) Reschedule() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rescheduleLocked()
}

// OnFocusGained resets the interval to base and re-arms the timer.
func (p *Poller) OnFocusGained() {
	p.resetInterval("focus")
}

// OnUserCopy resets the interval to base and re-arms the timer.
func (p *Poller) OnUserCopy() {
	p.resetInterval("copy")
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Interval returns the delay the next cycle will be armed with.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

func (p *Poller) resetInterval(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = p.cfg.Base
	p.quiet = 0
	p.rescheduleLocked()
	p.log.Debug("poll interval reset", "reason", reason)
}

func (p *Poller) rescheduleLocked() {
	if p.state != StateScheduled {
		return
	}
	p.timer.Stop()
	p.armLocked(p.interval)
}

func (p *Poller) armLocked(d time.Duration) {
	gen := p.gen
	p.state = StateScheduled
	p.timer = time.AfterFunc(d, func() { p.fire(gen) })
}

func (p *Poller) fire(gen uint64) {
	p.mu.Lock()
	if p.gen != gen || p.state != StateScheduled {
		p.mu.Unlock()
		return
	}
	p.state = StateSampling
	ctx := p.ctx
	p.mu.Unlock()

	p.cycle(ctx, gen)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen == gen && p.state == StateSampling {
		p.armLocked(p.interval)
	}
}

// cycle runs one sample. Results are dropped when gen is no longer current.
func (p *Poller) cycle(ctx context.Context, gen uint64) {
	if p.sink.Busy() {
		p.log.Debug("history busy, skipping sample")
		return
	}

	if p.counter != nil {
		n := p.counter.ChangeCount()
		p.mu.Lock()
		unchanged := p.hasCount && n == p.lastCount
		p.lastCount, p.hasCount = n, true
		p.mu.Unlock()
		if unchanged {
			p.settle(gen, false)
			return
		}
	}

	var novel []types.Payload

	text, textErr := p.acc.ReadText(ctx)
	if textErr != nil {
		p.log.Warn("failed to read clipboard text", "err", textErr)
		text = ""
	}
	img, imgErr := p.acc.ReadImage(ctx)
	if imgErr != nil {
		p.log.Warn("failed to read clipboard image", "err", imgErr)
		img = nil
	}

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	// A channel read back empty forgets its last fingerprint, so copying the
	// same content again after a clear is captured.
	if textErr == nil && text == "" {
		p.lastText = fingerprint.Fingerprint{}
	}
	if imgErr == nil && (img == nil || img.Hash == "") {
		p.lastImage = fingerprint.Fingerprint{}
	}
	if text != "" {
		fp := fingerprint.Of(types.TextPayload(text))
		if !fp.Equal(p.lastText) {
			p.lastText = fp
			novel = append(novel, types.TextPayload(text))
		}
	}
	if img != nil && img.Hash != "" {
		payload := types.ImagePayload(*img)
		fp := fingerprint.Of(payload)
		if !fp.Equal(p.lastImage) {
			p.lastImage = fp
			novel = append(novel, payload)
		}
	}
	p.mu.Unlock()

	for _, payload := range novel {
		res, err := p.sink.Append(ctx, payload)
		if err != nil {
			p.log.Error("failed to record clipboard content", "kind", payload.Kind, "err", err)
		}
		if res.Outcome == history.AppendCreated {
			p.log.Info("clip captured", "kind", res.Entry.Kind, "id", res.Entry.ID)
		}
	}

	p.settle(gen, len(novel) > 0)
}

// settle applies the backoff rule for one completed cycle.
func (p *Poller) settle(gen uint64, changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return
	}
	if changed {
		p.interval = p.cfg.Base
		p.quiet = 0
		return
	}
	p.quiet++
	if p.quiet > p.cfg.Threshold {
		next := time.Duration(float64(p.interval) * p.cfg.Factor)
		if next > p.cfg.Max {
			next = p.cfg.Max
		}
		p.interval = next
	}
}
