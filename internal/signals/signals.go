// Package signals provides a small connect/emit primitive for components that
// live on the single-threaded event loop.
package signals

// Subscription is a handle returned by Connect. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Func adapts a plain function to Subscription.
type Func func()

// Unsubscribe calls f.
func (f Func) Unsubscribe() {
	if f != nil {
		f()
	}
}

// Nop is a Subscription that does nothing.
var Nop Subscription = Func(nil)

type handler[T any] struct {
	fn      func(T)
	removed bool
}

// Emitter fans a value out to connected handlers in connection order.
// It is not safe for concurrent use; emitters are owned by the event loop.
type Emitter[T any] struct {
	handlers []*handler[T]
}

// Connect registers fn and returns a handle that disconnects it.
func (e *Emitter[T]) Connect(fn func(T)) Subscription {
	h := &handler[T]{fn: fn}
	e.handlers = append(e.handlers, h)
	return Func(func() { e.remove(h) })
}

func (e *Emitter[T]) remove(h *handler[T]) {
	if h.removed {
		return
	}
	h.removed = true
	for i, cur := range e.handlers {
		if cur == h {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return
		}
	}
}

// Emit invokes every handler connected at the time of the call. Handlers
// disconnected by an earlier handler during the same emission are skipped.
func (e *Emitter[T]) Emit(v T) {
	snapshot := append([]*handler[T](nil), e.handlers...)
	for _, h := range snapshot {
		if h.removed {
			continue
		}
		h.fn(v)
	}
}

// Len reports the number of connected handlers.
func (e *Emitter[T]) Len() int {
	return len(e.handlers)
}

// Clear disconnects every handler.
func (e *Emitter[T]) Clear() {
	for _, h := range e.handlers {
		h.removed = true
	}
	e.handlers = nil
}

// Group collects subscriptions so they can be released together.
type Group struct {
	subs []Subscription
}

// Add appends s to the group. Nil subscriptions are ignored.
func (g *Group) Add(s Subscription) {
	if s == nil {
		return
	}
	g.subs = append(g.subs, s)
}

// Unsubscribe releases every subscription in reverse order and empties the group.
func (g *Group) Unsubscribe() {
	for i := len(g.subs) - 1; i >= 0; i-- {
		g.subs[i].Unsubscribe()
	}
	g.subs = nil
}

// Len reports how many subscriptions the group holds.
func (g *Group) Len() int {
	return len(g.subs)
}
