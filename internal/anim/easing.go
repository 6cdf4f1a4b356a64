// Package anim provides easing curves and scheduler-driven transitions.
package anim

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EasingFunc maps linear progress in [0,1] to eased progress.
type EasingFunc func(t float64) float64

// Mode selects an easing curve. Values are ordinals into a fixed table and
// are what configuration files store.
type Mode int

const (
	EaseIn Mode = iota
	EaseInBack
	EaseInBounce
	EaseInCirc
	EaseInCubic
	EaseInElastic
	EaseInExpo
	EaseInOut
	EaseInOutBack
	EaseInOutBounce
	EaseInOutCirc
	EaseInOutCubic
	EaseInOutElastic
	EaseInOutExpo
	EaseInOutQuad
	EaseInOutQuart
	EaseInOutQuint
	EaseInOutSine
	EaseInQuad
	EaseInQuart
	EaseInQuint
	EaseInSine
	EaseOut
	EaseOutBack
	EaseOutBounce
	EaseOutCirc
	EaseOutCubic
	EaseOutElastic
	EaseOutExpo
	EaseOutQuad
	EaseOutQuart
	EaseOutQuint
	EaseOutSine

	modeCount
)

// ModeCount is the number of entries in the easing table.
const ModeCount = int(modeCount)

type curve struct {
	name string
	fn   EasingFunc
}

var table = [modeCount]curve{
	EaseIn:           {"ease-in", cubicBezier(0.42, 0, 1, 1)},
	EaseInBack:       {"ease-in-back", inBack},
	EaseInBounce:     {"ease-in-bounce", in(outBounce)},
	EaseInCirc:       {"ease-in-circ", inCirc},
	EaseInCubic:      {"ease-in-cubic", pow(3)},
	EaseInElastic:    {"ease-in-elastic", in(outElastic)},
	EaseInExpo:       {"ease-in-expo", inExpo},
	EaseInOut:        {"ease-in-out", cubicBezier(0.42, 0, 0.58, 1)},
	EaseInOutBack:    {"ease-in-out-back", inOut(inBack)},
	EaseInOutBounce:  {"ease-in-out-bounce", inOut(in(outBounce))},
	EaseInOutCirc:    {"ease-in-out-circ", inOut(inCirc)},
	EaseInOutCubic:   {"ease-in-out-cubic", inOut(pow(3))},
	EaseInOutElastic: {"ease-in-out-elastic", inOut(in(outElastic))},
	EaseInOutExpo:    {"ease-in-out-expo", inOut(inExpo)},
	EaseInOutQuad:    {"ease-in-out-quad", inOut(pow(2))},
	EaseInOutQuart:   {"ease-in-out-quart", inOut(pow(4))},
	EaseInOutQuint:   {"ease-in-out-quint", inOut(pow(5))},
	EaseInOutSine:    {"ease-in-out-sine", inOut(inSine)},
	EaseInQuad:       {"ease-in-quad", pow(2)},
	EaseInQuart:      {"ease-in-quart", pow(4)},
	EaseInQuint:      {"ease-in-quint", pow(5)},
	EaseInSine:       {"ease-in-sine", inSine},
	EaseOut:          {"ease-out", cubicBezier(0, 0, 0.58, 1)},
	EaseOutBack:      {"ease-out-back", out(inBack)},
	EaseOutBounce:    {"ease-out-bounce", outBounce},
	EaseOutCirc:      {"ease-out-circ", out(inCirc)},
	EaseOutCubic:     {"ease-out-cubic", out(pow(3))},
	EaseOutElastic:   {"ease-out-elastic", outElastic},
	EaseOutExpo:      {"ease-out-expo", out(inExpo)},
	EaseOutQuad:      {"ease-out-quad", out(pow(2))},
	EaseOutQuart:     {"ease-out-quart", out(pow(4))},
	EaseOutQuint:     {"ease-out-quint", out(pow(5))},
	EaseOutSine:      {"ease-out-sine", out(inSine)},
}

// Valid reports whether m indexes the easing table.
func (m Mode) Valid() bool {
	return m >= 0 && m < modeCount
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return table[m].name
}

// Func returns the curve for m. Invalid modes fall back to ease-out-cubic.
func (m Mode) Func() EasingFunc {
	if !m.Valid() {
		return table[EaseOutCubic].fn
	}
	return table[m].fn
}

// Ease applies the curve to t, clamping t to [0,1] and pinning both ends.
func (m Mode) Ease(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}
	return m.Func()(t)
}

// ParseMode accepts a curve name ("ease-out-back", "EASE_OUT_BACK") or an
// ordinal index into the table.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		m := Mode(n)
		if !m.Valid() {
			return 0, fmt.Errorf("easing index %d out of range [0,%d)", n, ModeCount)
		}
		return m, nil
	}
	norm := strings.ToLower(strings.ReplaceAll(s, "_", "-"))
	for i := range table {
		if table[i].name == norm {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown easing mode %q", s)
}

// Modes returns every curve name in ordinal order.
func Modes() []string {
	names := make([]string, 0, ModeCount)
	for i := range table {
		names = append(names, table[i].name)
	}
	return names
}

func pow(n float64) EasingFunc {
	return func(t float64) float64 { return math.Pow(t, n) }
}

func out(f EasingFunc) EasingFunc {
	return func(t float64) float64 { return 1 - f(1-t) }
}

func in(outFn EasingFunc) EasingFunc {
	return out(outFn)
}

func inOut(f EasingFunc) EasingFunc {
	return func(t float64) float64 {
		if t < 0.5 {
			return f(2*t) / 2
		}
		return 1 - f(2-2*t)/2
	}
}

func inSine(t float64) float64 {
	return 1 - math.Cos(t*math.Pi/2)
}

func inExpo(t float64) float64 {
	if t == 0 {
		return 0
	}
	return math.Pow(2, 10*(t-1))
}

func inCirc(t float64) float64 {
	return 1 - math.Sqrt(1-t*t)
}

func inBack(t float64) float64 {
	const s = 1.70158
	return t * t * ((s+1)*t - s)
}

func outBounce(t float64) float64 {
	const n, d = 7.5625, 2.75
	switch {
	case t < 1/d:
		return n * t * t
	case t < 2/d:
		t -= 1.5 / d
		return n*t*t + 0.75
	case t < 2.5/d:
		t -= 2.25 / d
		return n*t*t + 0.9375
	default:
		t -= 2.625 / d
		return n*t*t + 0.984375
	}
}

func outElastic(t float64) float64 {
	if t == 0 || t == 1 {
		return t
	}
	const p = 0.3
	return math.Pow(2, -10*t)*math.Sin((t-p/4)*(2*math.Pi)/p) + 1
}

// cubicBezier builds a CSS-style timing function with control points
// (x1,y1) and (x2,y2). x is solved with Newton iterations then bisection.
func cubicBezier(x1, y1, x2, y2 float64) EasingFunc {
	cx := 3 * x1
	bx := 3*(x2-x1) - cx
	ax := 1 - cx - bx
	cy := 3 * y1
	by := 3*(y2-y1) - cy
	ay := 1 - cy - by

	sampleX := func(u float64) float64 { return ((ax*u+bx)*u + cx) * u }
	sampleY := func(u float64) float64 { return ((ay*u+by)*u + cy) * u }
	slopeX := func(u float64) float64 { return (3*ax*u+2*bx)*u + cx }

	return func(x float64) float64 {
		u := x
		for i := 0; i < 8; i++ {
			dx := sampleX(u) - x
			if math.Abs(dx) < 1e-6 {
				return sampleY(u)
			}
			d := slopeX(u)
			if math.Abs(d) < 1e-6 {
				break
			}
			u -= dx / d
		}
		lo, hi := 0.0, 1.0
		u = x
		for i := 0; i < 32 && hi-lo > 1e-7; i++ {
			if sampleX(u) < x {
				lo = u
			} else {
				hi = u
			}
			u = (lo + hi) / 2
		}
		return sampleY(u)
	}
}
