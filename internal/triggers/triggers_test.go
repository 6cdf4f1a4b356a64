package triggers

import (
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/focushint/internal/focus"
	"github.com/1broseidon/focushint/internal/hint"
	"github.com/1broseidon/focushint/internal/loop/looptest"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/platform/platformtest"
	"github.com/1broseidon/focushint/internal/stage"
	"github.com/1broseidon/focushint/internal/switcher"
)

type fixture struct {
	clock    *looptest.Fake
	display  *platformtest.Display
	shell    *platformtest.Shell
	lock     *platformtest.Lock
	launcher *platformtest.Launcher
	stage    *stage.Memory
	coord    *focus.Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    looptest.New(),
		display:  platformtest.NewDisplay(),
		shell:    &platformtest.Shell{},
		lock:     &platformtest.Lock{},
		launcher: &platformtest.Launcher{},
	}
	f.stage = stage.NewMemory(f.clock)
	c, err := focus.New(focus.Config{
		Display:   f.display,
		Shell:     f.shell,
		Lock:      f.lock,
		Stage:     f.stage,
		Scheduler: f.clock,
		Strategy:  hint.KindOutline,
	})
	if err != nil {
		t.Fatalf("focus.New() error: %v", err)
	}
	f.coord = c
	return f
}

func (f *fixture) add(id platform.WindowID, ws int, class string) *platformtest.Window {
	w := platformtest.NewWindow(id, ws, platform.Rect{X: 10, Y: 10, Width: 300, Height: 200})
	w.Class = class
	f.display.Add(w)
	return w
}

type fakeIdleMonitor struct {
	next    WatchID
	idle    map[WatchID]func()
	active  map[WatchID]func()
	removed []WatchID
	fail    error
	lastDur time.Duration
}

func newFakeIdleMonitor() *fakeIdleMonitor {
	return &fakeIdleMonitor{idle: map[WatchID]func(){}, active: map[WatchID]func(){}}
}

func (m *fakeIdleMonitor) AddIdleWatch(d time.Duration, fn func()) (WatchID, error) {
	if m.fail != nil {
		return 0, m.fail
	}
	m.next++
	m.idle[m.next] = fn
	m.lastDur = d
	return m.next, nil
}

func (m *fakeIdleMonitor) AddUserActiveWatch(fn func()) (WatchID, error) {
	m.next++
	m.active[m.next] = fn
	return m.next, nil
}

func (m *fakeIdleMonitor) RemoveWatch(id WatchID) error {
	m.removed = append(m.removed, id)
	delete(m.idle, id)
	delete(m.active, id)
	return nil
}

func (m *fakeIdleMonitor) goIdle() {
	for _, fn := range m.idle {
		fn()
	}
}

// becomeActive fires the one-shot activity watches.
func (m *fakeIdleMonitor) becomeActive() {
	fns := m.active
	m.active = map[WatchID]func(){}
	for _, fn := range fns {
		fn()
	}
}

func TestIdleReturnHintsFocus(t *testing.T) {
	f := newFixture(t)
	w := f.add(1, 0, "term")
	f.display.Focus(w)
	mon := newFakeIdleMonitor()
	settings := IdleSettings{Enabled: true, Threshold: time.Minute}

	idle, err := NewIdle(IdleConfig{
		Monitor:     mon,
		Coordinator: f.coord,
		Display:     f.display,
		Lock:        f.lock,
		Settings:    func() IdleSettings { return settings },
	})
	if err != nil {
		t.Fatalf("NewIdle() error: %v", err)
	}
	if mon.lastDur != time.Minute || len(mon.idle) != 1 {
		t.Fatalf("idle watch not registered: %v", mon.lastDur)
	}

	mon.becomeActive()
	if f.coord.Current() != nil {
		t.Fatalf("activity before idle hinted")
	}
	mon.goIdle()
	mon.becomeActive()
	if !platform.SameWindow(f.coord.Current(), w) {
		t.Fatalf("return from idle did not hint focus")
	}

	f.coord.Reset()
	f.lock.Set(true)
	mon.goIdle()
	mon.becomeActive()
	if f.coord.Current() != nil {
		t.Fatalf("hinted while locked")
	}

	settings.Threshold = 2 * time.Minute
	if err := idle.Rewatch(); err != nil {
		t.Fatalf("Rewatch() error: %v", err)
	}
	if mon.lastDur != 2*time.Minute || len(mon.idle) != 1 {
		t.Fatalf("rewatch left %d idle watches", len(mon.idle))
	}

	idle.Destroy()
	if len(mon.idle) != 0 || len(mon.active) != 0 {
		t.Fatalf("Destroy left watches")
	}
}

func TestIdleDisabledAndErrors(t *testing.T) {
	f := newFixture(t)
	mon := newFakeIdleMonitor()
	_, err := NewIdle(IdleConfig{
		Monitor: mon, Coordinator: f.coord, Display: f.display,
		Settings: func() IdleSettings { return IdleSettings{Enabled: false, Threshold: time.Minute} },
	})
	if err != nil || len(mon.idle) != 0 {
		t.Fatalf("disabled trigger registered: err=%v watches=%d", err, len(mon.idle))
	}

	mon.fail = errors.New("no idle monitor")
	_, err = NewIdle(IdleConfig{
		Monitor: mon, Coordinator: f.coord, Display: f.display,
		Settings: func() IdleSettings { return IdleSettings{Enabled: true, Threshold: time.Minute} },
	})
	if err == nil {
		t.Fatalf("NewIdle() succeeded with failing monitor")
	}
}

func TestAppSwitcherSameWorkspaceIndicates(t *testing.T) {
	f := newFixture(t)
	a := f.add(1, 0, "a")
	b := f.add(2, 0, "b")
	f.display.Focus(a)
	popup := switcher.New(switcher.Config{Display: f.display, Launcher: f.launcher})
	up := hint.PhaseSpec{Duration: 150 * time.Millisecond, Mode: 0}
	as, err := InstallAppSwitcher(AppSwitcherConfig{
		Host: popup, Coordinator: f.coord, Display: f.display,
		Overrides: func() []hint.Override { return []hint.Override{hint.WithPhases(up, up)} },
	})
	if err != nil {
		t.Fatalf("InstallAppSwitcher() error: %v", err)
	}

	popup.Open(false)
	popup.Finish()

	if !platform.SameWindow(f.coord.Current(), b) {
		t.Fatalf("switcher selection not hinted")
	}
	if len(f.launcher.Activated) != 1 || f.launcher.Activated[0] != 2 {
		t.Fatalf("wrapped finisher not run: %v", f.launcher.Activated)
	}
	f.clock.Advance(up.Total() * 2)
	if f.coord.Current() != nil {
		t.Fatalf("switcher phases not applied")
	}

	as.Destroy()
	popup.Open(false)
	popup.Finish()
	if f.coord.Current() != nil {
		t.Fatalf("destroyed decorator still hints")
	}
	if len(f.launcher.Activated) != 2 {
		t.Fatalf("original finisher not restored")
	}
}

func TestAppSwitcherOtherWorkspaceSetsPending(t *testing.T) {
	f := newFixture(t)
	a := f.add(1, 0, "a")
	b := f.add(2, 3, "b")
	f.display.Focus(a)
	popup := switcher.New(switcher.Config{Display: f.display, Launcher: f.launcher})
	if _, err := InstallAppSwitcher(AppSwitcherConfig{Host: popup, Coordinator: f.coord, Display: f.display}); err != nil {
		t.Fatalf("InstallAppSwitcher() error: %v", err)
	}

	popup.Open(false)
	popup.Finish()

	if f.coord.Current() != nil {
		t.Fatalf("cross-workspace target hinted immediately")
	}
	if !platform.SameWindow(f.coord.PendingFocus(), b) {
		t.Fatalf("pending focus not set")
	}
}

func TestSlotSwitching(t *testing.T) {
	favs := []Favorite{{Class: "Firefox", Command: "firefox"}, {Class: "term", Command: "xterm"}, {Class: "mail", Command: "thunderbird"}}
	tests := []struct {
		name        string
		slot        int
		wantCurrent platform.WindowID
		wantPending platform.WindowID
		wantLaunch  string
		wantErr     bool
	}{
		{name: "same workspace", slot: 1, wantCurrent: 1},
		{name: "other workspace", slot: 2, wantPending: 2},
		{name: "no windows launches", slot: 3, wantLaunch: "thunderbird"},
		{name: "empty slot", slot: 4, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.add(1, 0, "firefox")
			f.add(2, 1, "term")
			s := NewSlots(SlotsConfig{
				Coordinator: f.coord, Display: f.display, Shell: f.shell, Launcher: f.launcher,
				Favorites: func() []Favorite { return favs },
			})
			err := s.SwitchTo(tt.slot)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SwitchTo(%d) error = %v", tt.slot, err)
			}
			var cur, pend platform.WindowID
			if w := f.coord.Current(); w != nil {
				cur = w.ID()
			}
			if w := f.coord.PendingFocus(); w != nil {
				pend = w.ID()
			}
			if cur != tt.wantCurrent || pend != tt.wantPending {
				t.Fatalf("current=%d pending=%d, want %d/%d", cur, pend, tt.wantCurrent, tt.wantPending)
			}
			if tt.wantLaunch != "" && (len(f.launcher.Launched) != 1 || f.launcher.Launched[0] != tt.wantLaunch) {
				t.Fatalf("Launched = %v", f.launcher.Launched)
			}
		})
	}
}

func TestRapidSlotSwitchesKeepLast(t *testing.T) {
	f := newFixture(t)
	f.add(1, 1, "one")
	two := f.add(2, 2, "two")
	s := NewSlots(SlotsConfig{
		Coordinator: f.coord, Display: f.display, Launcher: f.launcher,
		Favorites: func() []Favorite { return []Favorite{{Class: "one"}, {Class: "two"}} },
	})

	if err := s.SwitchTo(1); err != nil {
		t.Fatalf("SwitchTo(1): %v", err)
	}
	if err := s.SwitchTo(2); err != nil {
		t.Fatalf("SwitchTo(2): %v", err)
	}
	if !platform.SameWindow(f.coord.PendingFocus(), two) {
		t.Fatalf("pending focus is not slot 2's window")
	}
	if f.coord.Current() != nil || len(f.stage.Created()) != 0 {
		t.Fatalf("slot 1 target was indicated")
	}
}

func TestSlotHidesOverviewBeforeHinting(t *testing.T) {
	f := newFixture(t)
	f.add(1, 0, "firefox")
	f.shell.Visible = true
	s := NewSlots(SlotsConfig{
		Coordinator: f.coord, Display: f.display, Shell: f.shell, Launcher: f.launcher,
		Favorites: func() []Favorite { return []Favorite{{Class: "firefox"}} },
	})
	if err := s.SwitchTo(1); err != nil {
		t.Fatalf("SwitchTo(1): %v", err)
	}
	if f.shell.Hides != 1 || f.coord.Current() == nil {
		t.Fatalf("hides=%d current=%v", f.shell.Hides, f.coord.Current())
	}
}
