package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/focushint/internal/config"
	"github.com/1broseidon/focushint/internal/hint"
	"github.com/1broseidon/focushint/internal/loop/looptest"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/platform/platformtest"
	"github.com/1broseidon/focushint/internal/stage"
	"github.com/1broseidon/focushint/internal/switcher"
	"github.com/1broseidon/focushint/internal/triggers"
	"github.com/1broseidon/focushint/internal/wsswitch"
)

type testDesktop struct {
	*platformtest.Display
	count     int
	activated []int
	// gone hides windows from AllWindows without an unmanaged signal.
	gone map[platform.WindowID]bool
}

func (d *testDesktop) Workspaces() int { return d.count }

func (d *testDesktop) ActivateDesktop(ws int) error {
	d.activated = append(d.activated, ws)
	d.Active = ws
	return nil
}

func (d *testDesktop) AllWindows() []platform.Window {
	var out []platform.Window
	for _, w := range d.Display.AllWindows() {
		if !d.gone[w.ID()] {
			out = append(out, w)
		}
	}
	return out
}

type fakeBindings struct {
	slots        map[int]func(int)
	switcher     func(bool)
	modifier     string
	hotkey       string
	unregistered int
}

func (b *fakeBindings) RegisterSlots(modifier string, fn func(int)) error {
	b.modifier = modifier
	b.slots = map[int]func(int){}
	for i := 1; i <= triggers.MaxSlots; i++ {
		b.slots[i] = fn
	}
	return nil
}

func (b *fakeBindings) RegisterSwitcher(hotkey string, fn func(bool)) error {
	b.hotkey = hotkey
	b.switcher = fn
	return nil
}

func (b *fakeBindings) UnregisterAll() {
	b.unregistered++
	b.slots = nil
	b.switcher = nil
	b.hotkey = ""
}

type fakeKeys struct {
	popup  *switcher.Popup
	hotkey string
	closed int
}

func (k *fakeKeys) Trigger(backward bool) {
	if k.popup.IsOpen() {
		k.popup.Next()
		return
	}
	k.popup.Open(backward)
}

func (k *fakeKeys) SetHotkey(hotkey string) error {
	if hotkey == "" {
		return errors.New("empty hotkey")
	}
	k.hotkey = hotkey
	return nil
}

func (k *fakeKeys) Close() {
	k.closed++
	k.popup.Cancel()
}

type fakeIdle struct {
	next   triggers.WatchID
	idle   map[triggers.WatchID]time.Duration
	active map[triggers.WatchID]func()
}

func newFakeIdle() *fakeIdle {
	return &fakeIdle{idle: map[triggers.WatchID]time.Duration{}, active: map[triggers.WatchID]func(){}}
}

func (f *fakeIdle) AddIdleWatch(d time.Duration, fn func()) (triggers.WatchID, error) {
	f.next++
	f.idle[f.next] = d
	return f.next, nil
}

func (f *fakeIdle) AddUserActiveWatch(fn func()) (triggers.WatchID, error) {
	f.next++
	f.active[f.next] = fn
	return f.next, nil
}

func (f *fakeIdle) RemoveWatch(id triggers.WatchID) error {
	delete(f.idle, id)
	delete(f.active, id)
	return nil
}

type fixture struct {
	clock    *looptest.Fake
	desktop  *testDesktop
	stage    *stage.Memory
	lock     *platformtest.Lock
	launcher *platformtest.Launcher
	popup    *switcher.Popup
	keys     *fakeKeys
	bindings *fakeBindings
	idle     *fakeIdle
	ctrl     *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock: looptest.New(),
		desktop: &testDesktop{
			Display: platformtest.NewDisplay(),
			count:   4,
			gone:    map[platform.WindowID]bool{},
		},
		lock:     &platformtest.Lock{},
		launcher: &platformtest.Launcher{},
		bindings: &fakeBindings{},
		idle:     newFakeIdle(),
	}
	f.stage = stage.NewMemory(f.clock)
	f.popup = switcher.New(switcher.Config{Display: f.desktop, Launcher: f.launcher})
	f.keys = &fakeKeys{popup: f.popup}

	cfg := config.DefaultConfig()
	cfg.Slots.Favorites = []config.Favorite{{Class: "app-2", Command: "app-two"}}
	ctrl, err := New(Config{
		Scheduler: f.clock,
		Display:   f.desktop,
		Stage:     f.stage,
		Shell:     &platformtest.Shell{},
		Lock:      f.lock,
		Launcher:  f.launcher,
		Idle:      f.idle,
		Switcher:  f.popup,
		Keys:      f.keys,
		Bindings:  f.bindings,
		Settings:  cfg,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	f.ctrl = ctrl
	return f
}

func (f *fixture) add(id platform.WindowID, ws int) *platformtest.Window {
	w := platformtest.NewWindow(id, ws, platform.Rect{X: 100, Y: 100, Width: 640, Height: 480})
	f.desktop.Add(w)
	return w
}

func (f *fixture) enable(t *testing.T) {
	t.Helper()
	if err := f.ctrl.Enable(); err != nil {
		t.Fatalf("Enable() error: %v", err)
	}
}

func isDecorated(p *switcher.Popup) bool {
	_, ok := p.Finisher().(*triggers.AppSwitcher)
	return ok
}

func TestEnableInstallsTriggers(t *testing.T) {
	f := newFixture(t)
	w := f.add(1, 0)
	f.desktop.Focus(w)

	if _, err := f.ctrl.Indicate(0); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Indicate before Enable error = %v, want ErrDisabled", err)
	}

	f.enable(t)
	if !f.ctrl.Enabled() || !f.ctrl.Status().Enabled {
		t.Fatalf("controller not enabled")
	}
	if !isDecorated(f.popup) {
		t.Fatalf("switcher finisher not decorated")
	}
	if _, ok := f.ctrl.host.SwitchAnimator().(*wsswitch.Synchronizer); !ok {
		t.Fatalf("switch animator not decorated")
	}
	if f.bindings.modifier != "Mod4" || f.bindings.hotkey != "Mod1-Tab" || f.keys.hotkey != "Mod1-Tab" {
		t.Fatalf("hotkeys not bound: %+v", f.bindings)
	}
	if len(f.idle.idle) != 1 {
		t.Fatalf("expected one idle watch, got %d", len(f.idle.idle))
	}

	ok, err := f.ctrl.Indicate(0)
	if err != nil || !ok {
		t.Fatalf("Indicate(0) = %v, %v", ok, err)
	}
	st := f.ctrl.Status()
	if st.Hint.Window != 1 || st.Hint.Phase != "up" || st.Hint.Actors == 0 {
		t.Fatalf("unexpected status %+v", st)
	}

	if _, err := f.ctrl.Indicate(99); err == nil {
		t.Fatalf("expected error for unmanaged window")
	}

	// Enable twice is a no-op.
	f.enable(t)
	f.ctrl.Disable()
	if isDecorated(f.popup) {
		t.Fatalf("finisher decorated twice")
	}
}

func TestDisableRestoresImmediatelyWhenUnlocked(t *testing.T) {
	f := newFixture(t)
	w := f.add(1, 0)
	f.desktop.Focus(w)
	f.enable(t)
	f.ctrl.Indicate(0)

	f.ctrl.Disable()
	if f.ctrl.Enabled() {
		t.Fatalf("still enabled")
	}
	if n := len(f.stage.Live()); n != 0 {
		t.Fatalf("expected no live actors after Disable, got %d", n)
	}
	if isDecorated(f.popup) {
		t.Fatalf("finisher not restored")
	}
	if f.ctrl.host.SwitchAnimator() != wsswitch.Animator(f.ctrl.animator) {
		t.Fatalf("switch animator not restored")
	}
	if f.bindings.switcher != nil || f.keys.closed != 1 {
		t.Fatalf("hotkeys not released")
	}
	if len(f.idle.idle) != 0 {
		t.Fatalf("idle watch left registered")
	}
	if f.ctrl.Status().RestorePending {
		t.Fatalf("restore reported pending")
	}
	if err := f.ctrl.SwitchSlot(1); !errors.Is(err, ErrDisabled) {
		t.Fatalf("SwitchSlot after Disable error = %v", err)
	}
}

func TestDisableWhileLockedDefersRestore(t *testing.T) {
	f := newFixture(t)
	f.enable(t)
	f.lock.Set(true)

	f.ctrl.Disable()
	if !f.ctrl.Status().RestorePending {
		t.Fatalf("restore should wait for unlock")
	}
	if !isDecorated(f.popup) || f.bindings.switcher == nil {
		t.Fatalf("restore ran while locked")
	}
	listeners := f.lock.Listeners()

	f.lock.Set(false)
	if isDecorated(f.popup) || f.bindings.switcher != nil {
		t.Fatalf("restore did not run on unlock")
	}
	if f.ctrl.Status().RestorePending {
		t.Fatalf("restore still pending after unlock")
	}
	if got := f.lock.Listeners(); got != listeners-1 {
		t.Fatalf("unlock listener not released: %d -> %d", listeners, got)
	}

	f.lock.Set(true)
	f.lock.Set(false)
	if f.bindings.unregistered != 2 {
		t.Fatalf("UnregisterAll called %d times, want 2", f.bindings.unregistered)
	}
}

func TestEnableFlushesDeferredRestore(t *testing.T) {
	f := newFixture(t)
	f.enable(t)
	f.lock.Set(true)
	f.ctrl.Disable()

	f.enable(t)
	if f.ctrl.Status().RestorePending {
		t.Fatalf("deferred restore not flushed")
	}
	f.ctrl.Shutdown()
	if isDecorated(f.popup) {
		t.Fatalf("finisher still decorated after shutdown")
	}
	if f.ctrl.host.SwitchAnimator() != wsswitch.Animator(f.ctrl.animator) {
		t.Fatalf("switch animator stacked decorators")
	}
}

func TestReloadAppliesStrategyAndHotkeys(t *testing.T) {
	f := newFixture(t)
	f.enable(t)

	next := *f.ctrl.Settings()
	next.Strategy = string(hint.KindUpscale)
	next.Slots.Modifier = "Control"
	next.Idle.Seconds = 120
	if err := f.ctrl.Reload(&next); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if got := f.ctrl.Status().Hint.Strategy; got != hint.KindUpscale {
		t.Fatalf("strategy = %s, want upscale", got)
	}
	if f.bindings.modifier != "Control" {
		t.Fatalf("slot modifier not rebound")
	}
	var threshold time.Duration
	for _, d := range f.idle.idle {
		threshold = d
	}
	if len(f.idle.idle) != 1 || threshold != 2*time.Minute {
		t.Fatalf("idle watch not re-registered: %v", f.idle.idle)
	}

	if err := f.ctrl.Reload(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestSetStrategy(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.SetStrategy("sparkle"); err == nil {
		t.Fatalf("expected unknown strategy error")
	}
	if err := f.ctrl.SetStrategy("static-outline"); err != nil {
		t.Fatalf("SetStrategy while disabled: %v", err)
	}
	f.enable(t)
	if got := f.ctrl.Status().Hint.Strategy; got != hint.KindStaticOutline {
		t.Fatalf("strategy = %s after enable", got)
	}
	if err := f.ctrl.SetStrategy("none"); err != nil {
		t.Fatalf("SetStrategy: %v", err)
	}
	if got := f.ctrl.Settings().Strategy; got != "none" {
		t.Fatalf("settings strategy = %q", got)
	}
}

func TestSwitcherAcrossWorkspacesHintsAfterSwitch(t *testing.T) {
	f := newFixture(t)
	w1 := f.add(1, 0)
	f.add(2, 1)
	f.desktop.Focus(w1)
	f.enable(t)

	f.bindings.switcher(false)
	if sel := f.popup.Selected(); sel == nil || sel.ID() != 2 {
		t.Fatalf("unexpected selection %v", sel)
	}
	f.popup.Finish()
	if got := f.ctrl.Status().Hint.Pending; got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}
	if len(f.launcher.Activated) != 1 {
		t.Fatalf("switcher did not activate the selection")
	}

	f.ctrl.DesktopChanged(0, 1)
	st := f.ctrl.Status()
	if st.Hint.Window != 2 || st.Hint.Pending != 0 {
		t.Fatalf("switch did not hint the pending window: %+v", st.Hint)
	}
	if !st.Switching {
		t.Fatalf("switch animation not running")
	}
	f.clock.Advance(time.Second)
	if f.ctrl.Status().Switching {
		t.Fatalf("switch animation did not finish")
	}
}

func TestSlotHotkey(t *testing.T) {
	f := newFixture(t)
	w1 := f.add(1, 0)
	f.add(2, 0)
	f.desktop.Focus(w1)
	f.enable(t)

	f.bindings.slots[1](1)
	if len(f.launcher.Activated) != 1 || f.launcher.Activated[0] != 2 {
		t.Fatalf("slot 1 did not activate app-2: %v", f.launcher.Activated)
	}
	if got := f.ctrl.Status().Hint.Window; got != 2 {
		t.Fatalf("slot did not hint window 2, got %d", got)
	}
	if err := f.ctrl.SwitchSlot(5); err == nil {
		t.Fatalf("expected empty slot error")
	}
}

func TestGestureActivatesLandingWorkspace(t *testing.T) {
	f := newFixture(t)
	f.add(1, 0)
	f.add(2, 1)

	f.ctrl.BeginGesture()
	f.ctrl.UpdateGesture(0.9)
	f.ctrl.EndGesture(false)
	f.clock.Advance(time.Second)

	if len(f.desktop.activated) != 1 || f.desktop.activated[0] != 1 {
		t.Fatalf("activated = %v, want [1]", f.desktop.activated)
	}
	// The window manager's own desktop notification is swallowed.
	f.ctrl.DesktopChanged(0, 1)
	if f.ctrl.Status().Switching {
		t.Fatalf("claimed switch animated again")
	}
}

func TestFullSwipeHintsDestinationWindow(t *testing.T) {
	f := newFixture(t)
	w1 := f.add(1, 0)
	f.add(2, 1)
	f.desktop.Focus(w1)
	f.enable(t)

	f.ctrl.BeginGesture()
	f.ctrl.UpdateGesture(1)
	f.ctrl.EndGesture(false)

	if len(f.desktop.activated) != 1 || f.desktop.activated[0] != 1 {
		t.Fatalf("activated = %v, want [1]", f.desktop.activated)
	}
	if got := f.ctrl.Status().Hint.Window; got != 2 {
		t.Fatalf("hinted window %d, want 2 on the destination", got)
	}

	f.ctrl.DesktopChanged(0, 1)
	if got := f.ctrl.Status().Hint.Window; got != 2 {
		t.Fatalf("desktop notification replaced the hint with %d", got)
	}
}

func TestWatchdogResetsOrphanedHint(t *testing.T) {
	f := newFixture(t)
	w := f.add(1, 0)
	f.desktop.Focus(w)
	f.enable(t)
	wd := NewWatchdog(WatchdogConfig{}, f.ctrl, f.clock)

	if n := wd.CheckNow(); n != 0 {
		t.Fatalf("healthy state reported %d problems", n)
	}

	f.ctrl.Indicate(0)
	f.desktop.gone[w.ID()] = true
	if n := wd.CheckNow(); n != 1 {
		t.Fatalf("expected one problem, got %d", n)
	}
	if st := f.ctrl.Status(); st.Hint.Window != 0 || st.Hint.Actors != 0 {
		t.Fatalf("orphaned hint not reset: %+v", st.Hint)
	}

	f.ctrl.Disable()
	if n := wd.CheckNow(); n != 0 {
		t.Fatalf("disabled controller reported %d problems", n)
	}
}
