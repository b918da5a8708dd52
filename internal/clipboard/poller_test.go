package clipboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickclip/internal/history"
	"quickclip/pkg/types"
)

type fakeAccessor struct {
	mu      sync.Mutex
	text    string
	img     *types.ImageRef
	textErr error
	imgErr  error
	reads   int
	entered chan struct{}
	release chan struct{}
}

func (f *fakeAccessor) set(text string, img *types.ImageRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text, f.img = text, img
}

func (f *fakeAccessor) ReadText(context.Context) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.text, f.textErr
}

func (f *fakeAccessor) ReadImage(context.Context) (*types.ImageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.img, f.imgErr
}

func (f *fakeAccessor) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeAccessor) WriteText(context.Context, string) error  { return nil }
func (f *fakeAccessor) WriteImage(context.Context, string) error { return nil }
func (f *fakeAccessor) Clear(context.Context) error              { return nil }

type fakeSink struct {
	mu         sync.Mutex
	busy       bool
	busyChecks int
	appended   []types.Payload
}

func (s *fakeSink) Append(_ context.Context, p types.Payload) (history.AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended = append(s.appended, p)
	return history.AppendResult{Outcome: history.AppendCreated}, nil
}

func (s *fakeSink) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busyChecks++
	return s.busy
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

func (s *fakeSink) checks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busyChecks
}

type fixedCounter struct{ n int }

func (c *fixedCounter) ChangeCount() int { return c.n }

func setupTestPoller(t *testing.T, cfg PollConfig) (*Poller, *fakeAccessor, *fakeSink) {
	t.Helper()
	acc := &fakeAccessor{}
	sink := &fakeSink{}
	p := NewPoller(acc, sink, nil, cfg)
	t.Cleanup(p.Stop)
	return p, acc, sink
}

// runCycles drives n cycles synchronously, bypassing the timer.
func runCycles(p *Poller, n int) {
	for i := 0; i < n; i++ {
		p.cycle(context.Background(), p.gen)
	}
}

func TestDefaultPollConfig(t *testing.T) {
	cfg := DefaultPollConfig()
	assert.Equal(t, time.Second, cfg.Base)
	assert.Equal(t, 5*time.Second, cfg.Max)
	assert.Equal(t, 1.5, cfg.Factor)
	assert.Equal(t, 5, cfg.Threshold)
}

func TestBackoff_GrowsAfterThreshold(t *testing.T) {
	p, acc, sink := setupTestPoller(t, PollConfig{})
	acc.set("a", nil)

	runCycles(p, 1)
	require.Equal(t, 1, sink.count())

	runCycles(p, 5)
	assert.Equal(t, time.Second, p.Interval(), "no backoff until the threshold is exceeded")

	want := []time.Duration{1500 * time.Millisecond, 2250 * time.Millisecond, 3375 * time.Millisecond, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		runCycles(p, 1)
		assert.Equal(t, w, p.Interval(), "quiet cycle %d", 6+i)
	}
	assert.Equal(t, 1, sink.count())

	acc.set("b", nil)
	runCycles(p, 1)
	assert.Equal(t, time.Second, p.Interval())
	assert.Equal(t, 2, sink.count())
}

func TestQuietCyclesThenChange(t *testing.T) {
	p, acc, sink := setupTestPoller(t, PollConfig{})
	acc.set("first", nil)
	runCycles(p, 1)

	runCycles(p, 5)
	assert.Equal(t, 5, p.quiet)
	assert.Equal(t, time.Second, p.Interval())

	runCycles(p, 1)
	require.Greater(t, p.Interval(), time.Second)

	acc.set("second", nil)
	runCycles(p, 1)
	assert.Equal(t, time.Second, p.Interval())
	assert.Equal(t, 0, p.quiet)
	require.Equal(t, 2, sink.count())
	assert.Equal(t, "second", sink.appended[1].Text)
}

func TestRecopyAfterClearIsCaptured(t *testing.T) {
	acc := &fakeAccessor{}
	store := history.New(history.Options{Clipboard: acc})
	p := NewPoller(acc, store, nil, PollConfig{})
	t.Cleanup(p.Stop)
	ctx := context.Background()

	acc.set("secret", &types.ImageRef{Hash: "h", Ref: "h.png"})
	runCycles(p, 1)
	require.Equal(t, 2, store.Len())

	require.NoError(t, store.Clear(ctx))
	acc.set("", nil)
	runCycles(p, 1)
	assert.Equal(t, 0, store.Len())

	acc.set("secret", &types.ImageRef{Hash: "h", Ref: "h.png"})
	runCycles(p, 2)
	assert.Equal(t, 2, store.Len(), "same text and image copied again are recorded")
}

func TestReadErrorKeepsLastFingerprint(t *testing.T) {
	p, acc, sink := setupTestPoller(t, PollConfig{})
	acc.set("same", nil)
	runCycles(p, 1)

	acc.textErr = errors.New("pasteboard locked")
	runCycles(p, 1)
	acc.textErr = nil
	runCycles(p, 1)
	assert.Equal(t, 1, sink.count(), "a failed read is not an empty clipboard")
}

func TestAbsentContentIsQuiet(t *testing.T) {
	p, _, sink := setupTestPoller(t, PollConfig{Threshold: 1})

	runCycles(p, 3)
	assert.Equal(t, 0, sink.count())
	assert.Greater(t, p.Interval(), time.Second)
}

func TestChannelsFailIndependently(t *testing.T) {
	p, acc, sink := setupTestPoller(t, PollConfig{})
	acc.textErr = errors.New("pasteboard locked")
	acc.set("ignored", &types.ImageRef{Width: 2, Height: 2, Hash: "h1", Ref: "h1.png"})

	runCycles(p, 1)
	require.Equal(t, 1, sink.count())
	assert.Equal(t, types.KindImage, sink.appended[0].Kind)

	acc.textErr = nil
	acc.imgErr = errors.New("decode failed")
	runCycles(p, 1)
	require.Equal(t, 2, sink.count())
	assert.Equal(t, "ignored", sink.appended[1].Text)
}

func TestTextAndImageBothNovel(t *testing.T) {
	p, acc, sink := setupTestPoller(t, PollConfig{})
	acc.set("caption", &types.ImageRef{Hash: "h", Ref: "h.png"})

	runCycles(p, 2)
	assert.Equal(t, 2, sink.count(), "one append per channel, not repeated")
}

func TestBusySkipsSampling(t *testing.T) {
	p, acc, sink := setupTestPoller(t, PollConfig{})
	acc.set("secret", nil)
	sink.busy = true

	runCycles(p, 3)
	assert.Equal(t, 0, acc.readCount())
	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 0, p.quiet)
}

func TestBusyStillRearms(t *testing.T) {
	p, _, sink := setupTestPoller(t, PollConfig{Base: 5 * time.Millisecond, Max: 5 * time.Millisecond})
	sink.busy = true

	p.Start(context.Background())
	assert.Eventually(t, func() bool { return sink.checks() >= 3 }, time.Second, 5*time.Millisecond)
	assert.NotEqual(t, StateIdle, p.State())
}

func TestFocusAndCopyResetInterval(t *testing.T) {
	p, _, _ := setupTestPoller(t, PollConfig{Threshold: 1})
	runCycles(p, 3)
	require.Greater(t, p.Interval(), time.Second)

	p.OnFocusGained()
	assert.Equal(t, time.Second, p.Interval())

	runCycles(p, 2)
	require.Greater(t, p.Interval(), time.Second)
	p.OnUserCopy()
	assert.Equal(t, time.Second, p.Interval())
}

func TestChangeCounterSkipsReads(t *testing.T) {
	acc := &fakeAccessor{}
	acc.set("x", nil)
	sink := &fakeSink{}
	counter := &fixedCounter{n: 7}
	p := NewPoller(acc, sink, counter, PollConfig{})

	runCycles(p, 1)
	runCycles(p, 1)
	assert.Equal(t, 1, acc.readCount())
	assert.Equal(t, 1, p.quiet)

	counter.n = 8
	acc.set("y", nil)
	runCycles(p, 1)
	assert.Equal(t, 2, acc.readCount())
	assert.Equal(t, 2, sink.count())
}

func TestStartStop(t *testing.T) {
	p, acc, sink := setupTestPoller(t, PollConfig{Base: 10 * time.Millisecond})
	acc.set("hello", nil)

	assert.Equal(t, StateIdle, p.State())
	p.Start(context.Background())
	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)

	p.Stop()
	assert.Equal(t, StateIdle, p.State())
	time.Sleep(20 * time.Millisecond)
	reads := acc.readCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, reads, acc.readCount(), "no cycles after stop")
}

func TestStopOnContextCancel(t *testing.T) {
	p, _, _ := setupTestPoller(t, PollConfig{Base: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	p.Start(ctx)
	cancel()
	assert.Eventually(t, func() bool { return p.State() == StateIdle }, time.Second, 5*time.Millisecond)
}

func TestStopDiscardsInFlightSample(t *testing.T) {
	p, acc, sink := setupTestPoller(t, PollConfig{Base: time.Hour})
	acc.set("late", nil)
	acc.entered = make(chan struct{})
	acc.release = make(chan struct{})

	p.Start(context.Background())
	<-acc.entered
	assert.Equal(t, StateSampling, p.State())

	p.Stop()
	close(acc.release)

	assert.Never(t, func() bool { return sink.count() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, StateIdle, p.State())
}

func TestPollersAreIndependent(t *testing.T) {
	a, accA, _ := setupTestPoller(t, PollConfig{Threshold: 1})
	b, _, _ := setupTestPoller(t, PollConfig{Threshold: 1})
	accA.set("only a", nil)

	runCycles(a, 1)
	runCycles(b, 3)
	assert.Equal(t, time.Second, a.Interval())
	assert.Greater(t, b.Interval(), time.Second)
}
