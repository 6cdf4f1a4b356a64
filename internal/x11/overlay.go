package x11

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/stage"
)

// Overlay is a stage.Stage drawing with override-redirect windows that
// bypass the window manager. Outlines are four thin bars, backdrops a single
// filled window and clones a window showing a copy of the source contents.
// Property changes are batched and flushed once per frame.
type Overlay struct {
	conn   *Connection
	sched  loop.Scheduler
	logger *slog.Logger
	gc     xproto.Gcontext

	// formats maps visuals to RENDER picture formats. Nil until RENDER has
	// been queried; empty when the server lacks it.
	formats map[xproto.Visualid]render.Pictformat
}

// NewOverlay returns an overlay stage on conn.
func NewOverlay(conn *Connection, sched loop.Scheduler, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{conn: conn, sched: sched, logger: logger}
}

func (o *Overlay) NewOutline(style stage.Style) stage.Actor {
	return o.newActor(stage.KindOutline, style, 0)
}

// NewClone starts the clone at the source frame.
func (o *Overlay) NewClone(source platform.Window) stage.Actor {
	a := o.newActor(stage.KindClone, stage.Style{}, xproto.Window(source.ID()))
	f := source.FrameRect()
	a.SetBounds(float64(f.X), float64(f.Y), float64(f.Width), float64(f.Height))
	return a
}

func (o *Overlay) NewBackdrop(bounds platform.Rect, style stage.Style) stage.Actor {
	a := o.newActor(stage.KindBackdrop, style, 0)
	a.SetBounds(float64(bounds.X), float64(bounds.Y), float64(bounds.Width), float64(bounds.Height))
	return a
}

func (o *Overlay) newActor(kind stage.Kind, style stage.Style, source xproto.Window) *overlayActor {
	a := &overlayActor{o: o, style: style, source: source}
	a.Node = stage.NewNode(kind, o.sched, a.invalidate)
	return a
}

type overlayActor struct {
	*stage.Node
	o      *Overlay
	style  stage.Style
	source xproto.Window

	wins    []xproto.Window
	mapped  bool
	pending loop.Timer
}

func (a *overlayActor) invalidate() {
	if a.pending == nil {
		a.pending = a.o.sched.BeforeRedraw(a.render)
	}
}

func (a *overlayActor) render() {
	a.pending = nil
	if a.Destroyed() {
		a.release()
		return
	}
	painted := a.Painted()
	opacity := a.Property(anim.Opacity)
	if !a.Visible() || painted.Empty() || opacity <= 0 {
		a.unmap()
		return
	}

	var rects []platform.Rect
	switch a.Kind() {
	case stage.KindOutline:
		bars := borderBars(painted, a.style.BorderWidth)
		rects = bars[:]
	default:
		rects = []platform.Rect{painted}
	}
	if err := a.ensureWindows(len(rects)); err != nil {
		a.o.logger.Debug("create overlay window", "kind", a.Kind().String(), "error", err)
		return
	}

	conn := a.o.conn.XUtil.Conn()
	alpha := uint8(math.Round(math.Min(opacity, 1) * 255))
	for i, r := range rects {
		a.o.place(a.wins[i], r, a.style.Color, alpha)
	}
	if a.Kind() == stage.KindClone {
		a.o.copyContents(a.source, a.wins[0], painted)
	}
	if !a.mapped {
		for _, w := range a.wins {
			xproto.MapWindow(conn, w)
		}
		a.mapped = true
	}
}

func (a *overlayActor) ensureWindows(n int) error {
	for len(a.wins) < n {
		w, err := a.o.createOverrideRedirectWindow()
		if err != nil {
			return err
		}
		a.wins = append(a.wins, w)
	}
	return nil
}

func (a *overlayActor) unmap() {
	if !a.mapped {
		return
	}
	for _, w := range a.wins {
		xproto.UnmapWindow(a.o.conn.XUtil.Conn(), w)
	}
	a.mapped = false
}

func (a *overlayActor) release() {
	for _, w := range a.wins {
		xproto.DestroyWindow(a.o.conn.XUtil.Conn(), w)
	}
	a.wins = nil
	a.mapped = false
}

// createOverrideRedirectWindow creates a single override-redirect window
func (o *Overlay) createOverrideRedirectWindow() (xproto.Window, error) {
	conn := o.conn.XUtil.Conn()
	screen := o.conn.XUtil.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		o.conn.Root,
		0, 0,
		1, 1,
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect,
		// Values follow mask bit order: back_pixel, then override_redirect.
		[]uint32{0, 1},
	).Check()
	if err != nil {
		return 0, err
	}
	return wid, nil
}

// place moves, resizes, recolours and fades one overlay window.
func (o *Overlay) place(wid xproto.Window, r platform.Rect, color uint32, alpha uint8) {
	conn := o.conn.XUtil.Conn()
	width, height := max(r.Width, 1), max(r.Height, 1)
	xproto.ConfigureWindow(
		conn,
		wid,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight|xproto.ConfigWindowStackMode,
		[]uint32{uint32(int32(r.X)), uint32(int32(r.Y)), uint32(width), uint32(height), xproto.StackModeAbove},
	)
	xproto.ChangeWindowAttributes(conn, wid, xproto.CwBackPixel, []uint32{color})
	xproto.ClearArea(conn, false, wid, 0, 0, 0, 0)
	if err := xprop.ChangeProp32(o.conn.XUtil, wid, opacityProp, "CARDINAL", uint(opacityToCardinal(alpha))); err != nil {
		o.logger.Debug("set overlay opacity", "error", err)
	}
}

// copyContents paints the source window into dst. With RENDER the source
// is scaled to fill painted; without it the core protocol can only copy the
// source at its own size, centred and framed by the background.
func (o *Overlay) copyContents(src, dst xproto.Window, painted platform.Rect) {
	conn := o.conn.XUtil.Conn()
	geom, err := xproto.GetGeometry(conn, xproto.Drawable(src)).Reply()
	if err != nil {
		return
	}
	if o.renderAvailable() {
		err := o.compositeScaled(src, dst, int(geom.Width), int(geom.Height), painted)
		if err == nil {
			return
		}
		o.logger.Debug("scaled clone copy", "error", err)
	}
	if o.gc == 0 {
		gc, err := xproto.NewGcontextId(conn)
		if err != nil {
			return
		}
		if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(o.conn.Root),
			xproto.GcSubwindowMode, []uint32{xproto.SubwindowModeIncludeInferiors}).Check(); err != nil {
			o.logger.Debug("create clone gc", "error", err)
			return
		}
		o.gc = gc
	}
	dx, dy := centreOffset(painted, int(geom.Width), int(geom.Height))
	xproto.CopyArea(conn, xproto.Drawable(src), xproto.Drawable(dst), o.gc, 0, 0, int16(dx), int16(dy), geom.Width, geom.Height)
}

func (o *Overlay) renderAvailable() bool {
	if o.formats != nil {
		return len(o.formats) > 0
	}
	o.formats = map[xproto.Visualid]render.Pictformat{}
	conn := o.conn.XUtil.Conn()
	if err := render.Init(conn); err != nil {
		o.logger.Debug("RENDER unavailable, clones will not scale", "error", err)
		return false
	}
	reply, err := render.QueryPictFormats(conn).Reply()
	if err != nil {
		o.logger.Debug("query picture formats", "error", err)
		return false
	}
	o.formats = visualFormats(reply)
	return len(o.formats) > 0
}

// compositeScaled stretches the w x h source over the whole of painted.
func (o *Overlay) compositeScaled(src, dst xproto.Window, w, h int, painted platform.Rect) error {
	conn := o.conn.XUtil.Conn()
	attrs, err := xproto.GetWindowAttributes(conn, src).Reply()
	if err != nil {
		return err
	}
	srcFormat, ok := o.formats[attrs.Visual]
	if !ok {
		return fmt.Errorf("no picture format for source visual %#x", attrs.Visual)
	}
	dstFormat, ok := o.formats[o.conn.XUtil.Screen().RootVisual]
	if !ok {
		return fmt.Errorf("no picture format for root visual")
	}

	srcPic, err := o.newPicture(xproto.Drawable(src), srcFormat,
		render.CpSubwindowMode, []uint32{xproto.SubwindowModeIncludeInferiors})
	if err != nil {
		return err
	}
	defer render.FreePicture(conn, srcPic)
	dstPic, err := o.newPicture(xproto.Drawable(dst), dstFormat, 0, nil)
	if err != nil {
		return err
	}
	defer render.FreePicture(conn, dstPic)

	sx, sy := scaleFactors(painted, w, h)
	render.SetPictureTransform(conn, srcPic, scaleTransform(sx, sy))
	render.SetPictureFilter(conn, srcPic, uint16(len(scaleFilter)), scaleFilter, nil)
	render.Composite(conn, render.PictOpSrc, srcPic, 0, dstPic,
		0, 0, 0, 0, 0, 0, uint16(max(painted.Width, 1)), uint16(max(painted.Height, 1)))
	return nil
}

func (o *Overlay) newPicture(d xproto.Drawable, format render.Pictformat, mask uint32, values []uint32) (render.Picture, error) {
	conn := o.conn.XUtil.Conn()
	pic, err := render.NewPictureId(conn)
	if err != nil {
		return 0, err
	}
	if err := render.CreatePictureChecked(conn, pic, d, format, mask, values).Check(); err != nil {
		return 0, err
	}
	return pic, nil
}

const scaleFilter = "bilinear"

// visualFormats indexes every visual of every screen by picture format.
func visualFormats(reply *render.QueryPictFormatsReply) map[xproto.Visualid]render.Pictformat {
	out := map[xproto.Visualid]render.Pictformat{}
	for _, screen := range reply.Screens {
		for _, depth := range screen.Depths {
			for _, v := range depth.Visuals {
				out[v.Visual] = v.Format
			}
		}
	}
	return out
}

// scaleFactors is the ratio of painted to a w x h source on each axis.
func scaleFactors(painted platform.Rect, w, h int) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	return float64(max(painted.Width, 1)) / float64(w), float64(max(painted.Height, 1)) / float64(h)
}

// scaleTransform is the picture transform drawing the source sx by sy times
// larger. RENDER maps destination pixels back to the source, so the matrix
// holds the inverse factors.
func scaleTransform(sx, sy float64) render.Transform {
	return render.Transform{
		Matrix11: toFixed(1 / sx),
		Matrix22: toFixed(1 / sy),
		Matrix33: toFixed(1),
	}
}

// toFixed converts to RENDER's 16.16 fixed point.
func toFixed(v float64) render.Fixed {
	return render.Fixed(math.Round(v * 65536))
}

// Close frees server-side resources owned by the stage.
func (o *Overlay) Close() {
	if o.gc != 0 {
		xproto.FreeGC(o.conn.XUtil.Conn(), o.gc)
		o.gc = 0
	}
}

// borderBars splits r into top, bottom, left and right bars of thickness t.
func borderBars(r platform.Rect, t int) [4]platform.Rect {
	if t < 1 {
		t = 1
	}
	t = min(t, r.Width/2, r.Height/2)
	return [4]platform.Rect{
		{X: r.X, Y: r.Y, Width: r.Width, Height: t},
		{X: r.X, Y: r.Y + r.Height - t, Width: r.Width, Height: t},
		{X: r.X, Y: r.Y + t, Width: t, Height: r.Height - 2*t},
		{X: r.X + r.Width - t, Y: r.Y + t, Width: t, Height: r.Height - 2*t},
	}
}

func centreOffset(dst platform.Rect, w, h int) (int, int) {
	return (dst.Width - w) / 2, (dst.Height - h) / 2
}

var _ stage.Stage = (*Overlay)(nil)
