package x11

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BurntSushi/xgb/screensaver"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/triggers"
)

// DefaultIdlePoll is how often the idle time is sampled.
const DefaultIdlePoll = time.Second

// ScreenSaverIdle implements triggers.IdleMonitor by sampling the MIT-SCREEN-SAVER
// idle counter. It is the fallback for sessions without a compositor idle
// monitor on D-Bus. Idle watches re-arm once the user is active again;
// user-active watches fire once.
type ScreenSaverIdle struct {
	sched  loop.Scheduler
	logger *slog.Logger
	poll   time.Duration
	query  func() (time.Duration, error)

	watches map[triggers.WatchID]*sampleWatch
	next    triggers.WatchID
	last    time.Duration
	timer   loop.Timer
}

type sampleWatch struct {
	interval time.Duration // zero for user-active watches
	fn       func()
	fired    bool
}

// NewScreenSaverIdle initialises the extension on conn.
func NewScreenSaverIdle(conn *Connection, sched loop.Scheduler, logger *slog.Logger) (*ScreenSaverIdle, error) {
	if err := screensaver.Init(conn.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("screensaver extension: %w", err)
	}
	query := func() (time.Duration, error) {
		info, err := screensaver.QueryInfo(conn.XUtil.Conn(), xproto.Drawable(conn.Root)).Reply()
		if err != nil {
			return 0, err
		}
		return time.Duration(info.MsSinceUserInput) * time.Millisecond, nil
	}
	return newScreenSaverIdle(query, sched, DefaultIdlePoll, logger), nil
}

func newScreenSaverIdle(query func() (time.Duration, error), sched loop.Scheduler, poll time.Duration, logger *slog.Logger) *ScreenSaverIdle {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScreenSaverIdle{
		sched:   sched,
		logger:  logger,
		poll:    poll,
		query:   query,
		watches: make(map[triggers.WatchID]*sampleWatch),
	}
}

func (s *ScreenSaverIdle) AddIdleWatch(interval time.Duration, fn func()) (triggers.WatchID, error) {
	if interval <= 0 {
		return 0, errors.New("idle interval must be positive")
	}
	return s.add(&sampleWatch{interval: interval, fn: fn}), nil
}

func (s *ScreenSaverIdle) AddUserActiveWatch(fn func()) (triggers.WatchID, error) {
	if idle, err := s.query(); err == nil {
		s.last = idle
	}
	return s.add(&sampleWatch{fn: fn}), nil
}

func (s *ScreenSaverIdle) RemoveWatch(id triggers.WatchID) error {
	if _, ok := s.watches[id]; !ok {
		return fmt.Errorf("unknown idle watch %d", id)
	}
	delete(s.watches, id)
	if len(s.watches) == 0 && s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return nil
}

// Close stops sampling and drops every watch.
func (s *ScreenSaverIdle) Close() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	clear(s.watches)
}

func (s *ScreenSaverIdle) add(w *sampleWatch) triggers.WatchID {
	s.next++
	s.watches[s.next] = w
	if s.timer == nil {
		s.timer = s.sched.AfterFunc(s.poll, s.sample)
	}
	return s.next
}

func (s *ScreenSaverIdle) sample() {
	s.timer = nil
	idle, err := s.query()
	if err != nil {
		s.logger.Debug("query idle time", "error", err)
	} else {
		s.observe(idle)
	}
	if len(s.watches) > 0 && s.timer == nil {
		s.timer = s.sched.AfterFunc(s.poll, s.sample)
	}
}

// observe fires watches for one idle-time sample. Activity shows up as the
// counter going backwards.
func (s *ScreenSaverIdle) observe(idle time.Duration) {
	active := idle < s.last
	s.last = idle
	for id, w := range s.watches {
		switch {
		case w.interval == 0:
			if active {
				delete(s.watches, id)
				w.fn()
			}
		case idle >= w.interval:
			if !w.fired {
				w.fired = true
				w.fn()
			}
		default:
			w.fired = false
		}
	}
}

var _ triggers.IdleMonitor = (*ScreenSaverIdle)(nil)
