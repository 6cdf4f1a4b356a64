// Package loop implements the daemon's single-threaded cooperative event
// loop. All focus-hint state is confined to the loop goroutine; other
// goroutines hand work over with Post.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

// DefaultFrameInterval is the redraw cadence used for BeforeRedraw batching
// and animation ticks.
const DefaultFrameInterval = 16 * time.Millisecond

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already
	// ran or was already stopped. Must be called on the loop.
	Stop() bool
}

// Scheduler is the loop surface used by animation and hint code.
type Scheduler interface {
	Now() time.Time
	// Post queues fn to run on the loop. Safe from any goroutine.
	Post(fn func())
	// AfterFunc runs fn on the loop after d.
	AfterFunc(d time.Duration, fn func()) Timer
	// BeforeRedraw runs fn once before the next frame. Callbacks queued in
	// the same turn run together.
	BeforeRedraw(fn func()) Timer
	// FrameInterval is the tick spacing for animations.
	FrameInterval() time.Duration
}

// Config configures a Loop.
type Config struct {
	FrameInterval time.Duration
	Logger        *slog.Logger
}

// Loop is the production Scheduler.
type Loop struct {
	frame  time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	// loop-confined
	redraw      []*timer
	redrawArmed bool
}

// New creates a loop. Run must be called to process work.
func New(cfg Config) *Loop {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		frame:  cfg.FrameInterval,
		logger: cfg.Logger,
		wake:   make(chan struct{}, 1),
	}
}

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) FrameInterval() time.Duration { return l.frame }

// Post implements Scheduler.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

type timer struct {
	fn      func()
	inner   *time.Timer
	stopped bool
	fired   bool
}

func (t *timer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	if t.inner != nil {
		t.inner.Stop()
	}
	return true
}

func (t *timer) run() {
	if t.stopped || t.fired {
		return
	}
	t.fired = true
	t.fn()
}

// AfterFunc implements Scheduler.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &timer{fn: fn}
	t.inner = time.AfterFunc(d, func() { l.Post(t.run) })
	return t
}

// BeforeRedraw implements Scheduler.
func (l *Loop) BeforeRedraw(fn func()) Timer {
	t := &timer{fn: fn}
	l.redraw = append(l.redraw, t)
	if !l.redrawArmed {
		l.redrawArmed = true
		time.AfterFunc(l.frame, func() { l.Post(l.flushRedraw) })
	}
	return t
}

func (l *Loop) flushRedraw() {
	pending := l.redraw
	l.redraw = nil
	l.redrawArmed = false
	for _, t := range pending {
		t.run()
	}
}

// Run processes posted work until ctx is cancelled. When xu is non-nil the
// X event queue is pumped on the same logical thread: X callbacks execute
// only while the loop is parked between pingBefore and pingAfter.
func (l *Loop) Run(ctx context.Context, xu *xgbutil.XUtil) error {
	var pingBefore, pingAfter, pingQuit chan struct{}
	if xu != nil {
		pingBefore, pingAfter, pingQuit = xevent.MainPing(xu)
	}

	for {
		select {
		case <-ctx.Done():
			if xu != nil {
				xevent.Quit(xu)
			}
			return nil
		case <-pingBefore:
			<-pingAfter
		case <-l.wake:
			l.drain()
		case <-pingQuit:
			return fmt.Errorf("x event loop quit")
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			l.safeCall(fn)
		}
	}
}

func (l *Loop) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop callback panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Do runs fn on the loop and waits for its result. It must not be called
// from the loop goroutine.
func Do[T any](ctx context.Context, s Scheduler, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	s.Post(func() {
		v, err := fn()
		done <- result{v, err}
	})
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

var _ Scheduler = (*Loop)(nil)
