// Package looptest provides a deterministic loop.Scheduler driven by a
// simulated clock.
package looptest

import (
	"sort"
	"time"

	"github.com/1broseidon/focushint/internal/loop"
)

// Frame is the simulated frame interval.
const Frame = 16 * time.Millisecond

// Fake is a simulated-time scheduler. Nothing runs until Flush or Advance
// is called.
type Fake struct {
	now    time.Time
	seq    uint64
	timers []*fakeTimer
	posted []func()
	redraw []*fakeTimer
}

type fakeTimer struct {
	due     time.Time
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// New returns a Fake starting at the Unix epoch.
func New() *Fake {
	return &Fake{now: time.Unix(0, 0)}
}

func (f *Fake) Now() time.Time { return f.now }

func (f *Fake) FrameInterval() time.Duration { return Frame }

// Post queues fn for the next Flush.
func (f *Fake) Post(fn func()) {
	f.posted = append(f.posted, fn)
}

// AfterFunc implements loop.Scheduler.
func (f *Fake) AfterFunc(d time.Duration, fn func()) loop.Timer {
	if d < 0 {
		d = 0
	}
	f.seq++
	t := &fakeTimer{due: f.now.Add(d), seq: f.seq, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// BeforeRedraw queues fn for the next Flush.
func (f *Fake) BeforeRedraw(fn func()) loop.Timer {
	f.seq++
	t := &fakeTimer{due: f.now, seq: f.seq, fn: fn}
	f.redraw = append(f.redraw, t)
	return t
}

// Flush runs posted work and pending redraw callbacks without advancing time.
func (f *Fake) Flush() {
	for len(f.posted) > 0 || len(f.redraw) > 0 {
		posted := f.posted
		f.posted = nil
		for _, fn := range posted {
			fn()
		}
		redraw := f.redraw
		f.redraw = nil
		for _, t := range redraw {
			if !t.stopped && !t.fired {
				t.fired = true
				t.fn()
			}
		}
	}
}

// Advance moves the clock forward by d, firing due timers in deadline order.
func (f *Fake) Advance(d time.Duration) {
	target := f.now.Add(d)
	for {
		f.Flush()
		t := f.nextDue(target)
		if t == nil {
			break
		}
		f.now = t.due
		t.fired = true
		t.fn()
	}
	f.now = target
	f.Flush()
}

func (f *Fake) nextDue(target time.Time) *fakeTimer {
	live := f.timers[:0]
	for _, t := range f.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	f.timers = live
	sort.SliceStable(f.timers, func(i, j int) bool {
		if f.timers[i].due.Equal(f.timers[j].due) {
			return f.timers[i].seq < f.timers[j].seq
		}
		return f.timers[i].due.Before(f.timers[j].due)
	})
	if len(f.timers) == 0 || f.timers[0].due.After(target) {
		return nil
	}
	return f.timers[0]
}

// Pending reports the number of armed timers.
func (f *Fake) Pending() int {
	n := 0
	for _, t := range f.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

var _ loop.Scheduler = (*Fake)(nil)
