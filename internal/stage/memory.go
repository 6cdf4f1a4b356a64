package stage

import (
	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
)

// MemoryActor is an actor rendered nowhere. It keeps the source window of
// clones and counts redraw notifications.
type MemoryActor struct {
	*Node
	Source  platform.Window
	Style   Style
	Changes int
}

// Memory is a headless Stage. It is used by tests and by the daemon's
// dry-run mode.
type Memory struct {
	sched   loop.Scheduler
	created []*MemoryActor
}

// NewMemory returns an empty headless stage.
func NewMemory(sched loop.Scheduler) *Memory {
	return &Memory{sched: sched}
}

func (m *Memory) add(kind Kind, src platform.Window, style Style) *MemoryActor {
	a := &MemoryActor{Source: src, Style: style}
	a.Node = NewNode(kind, m.sched, func() { a.Changes++ })
	m.created = append(m.created, a)
	return a
}

func (m *Memory) NewOutline(style Style) Actor {
	return m.add(KindOutline, nil, style)
}

// NewClone implements Stage. The clone starts at the source frame.
func (m *Memory) NewClone(source platform.Window) Actor {
	a := m.add(KindClone, source, Style{})
	f := source.FrameRect()
	a.SetBounds(float64(f.X), float64(f.Y), float64(f.Width), float64(f.Height))
	return a
}

func (m *Memory) NewBackdrop(bounds platform.Rect, style Style) Actor {
	a := m.add(KindBackdrop, nil, style)
	a.SetBounds(float64(bounds.X), float64(bounds.Y), float64(bounds.Width), float64(bounds.Height))
	return a
}

// Created returns every actor ever created, in order.
func (m *Memory) Created() []*MemoryActor {
	return append([]*MemoryActor(nil), m.created...)
}

// Live returns actors that have not been destroyed.
func (m *Memory) Live() []*MemoryActor {
	var out []*MemoryActor
	for _, a := range m.created {
		if !a.Destroyed() {
			out = append(out, a)
		}
	}
	return out
}

// LiveOf filters Live by kind.
func (m *Memory) LiveOf(kind Kind) []*MemoryActor {
	var out []*MemoryActor
	for _, a := range m.Live() {
		if a.Kind() == kind {
			out = append(out, a)
		}
	}
	return out
}

var _ Stage = (*Memory)(nil)
