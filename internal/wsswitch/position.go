package wsswitch

import "github.com/1broseidon/focushint/internal/platform"

// maxAncestorDepth bounds the parent walk in AbsolutePosition.
const maxAncestorDepth = 64

// AbsolutePosition returns where clone is drawn in stage coordinates.
//
// The transformed position is used when the animation reports one with both
// coordinates non-zero. Otherwise the local offsets of clone and each of its
// ancestors are summed and the monitor origin is added.
func AbsolutePosition(clone Clone, monitor platform.Rect) platform.Point {
	if p, ok := clone.TransformedPosition(); ok && p.X != 0 && p.Y != 0 {
		return p
	}
	var pos platform.Point
	var node Positioned = clone
	for depth := 0; node != nil && depth < maxAncestorDepth; depth++ {
		local := node.LocalPosition()
		pos.X += local.X
		pos.Y += local.Y
		node = node.Parent()
	}
	pos.X += float64(monitor.X)
	pos.Y += float64(monitor.Y)
	return pos
}
