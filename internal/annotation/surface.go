// Package annotation holds the headless controllers behind the photo
// annotation screen: the draw-surface gesture machine and the
// three-step capture draft.
package annotation

import "github.com/reefwatch/sharkmark/internal/geometry"

// MinRectSize is the minimum width and height a drawn rectangle must
// exceed to be committed. Smaller drags are treated as accidental
// clicks and discarded.
const MinRectSize = 0.02

// Surface converts a pointer-drag gesture over a rectangular surface
// into a normalized rectangle. It is a two-state machine (idle,
// dragging); each gesture is an independent transaction and no gesture
// ever partially commits.
//
// Surface geometry is captured once at drag start, so a surface that
// scrolls or resizes mid-drag does not shift the rectangle.
type Surface struct {
	originX, originY float64
	width, height    float64
	startX, startY   float64
	live             *geometry.Rect
	dragging         bool
}

// Dragging reports whether a gesture is in progress.
func (s *Surface) Dragging() bool {
	return s.dragging
}

// Live returns the rectangle currently being dragged, if any.
func (s *Surface) Live() (geometry.Rect, bool) {
	if s.live == nil {
		return geometry.Rect{}, false
	}
	return *s.live, true
}

// normalize maps a client-space pointer position into [0,1]^2 using the
// surface geometry captured at drag start.
func (s *Surface) normalize(clientX, clientY float64) (float64, float64) {
	if s.width <= 0 || s.height <= 0 {
		return 0, 0
	}
	x := geometry.Clamp01((clientX - s.originX) / s.width)
	y := geometry.Clamp01((clientY - s.originY) / s.height)
	return x, y
}

// BeginDrag starts a gesture. The surface origin and size are recorded
// once for the whole gesture. A BeginDrag while dragging restarts the
// gesture, discarding the previous one.
func (s *Surface) BeginDrag(originX, originY, width, height, clientX, clientY float64) {
	s.originX, s.originY = originX, originY
	s.width, s.height = width, height
	s.startX, s.startY = s.normalize(clientX, clientY)
	s.live = nil
	s.dragging = true
}

// Move updates the live rectangle. It is a no-op outside a gesture.
// Move is purely local state: it must never wait on anything.
func (s *Surface) Move(clientX, clientY float64) {
	if !s.dragging {
		return
	}
	x, y := s.normalize(clientX, clientY)
	r := geometry.FromCorners(s.startX, s.startY, x, y)
	s.live = &r
}

// EndDrag finishes the gesture. The live rectangle is returned with
// ok=true only when both its sides exceed MinRectSize; otherwise the
// drag is discarded. All gesture state is cleared unconditionally.
func (s *Surface) EndDrag() (geometry.Rect, bool) {
	live := s.live
	s.reset()
	if live == nil {
		return geometry.Rect{}, false
	}
	if live.W <= MinRectSize || live.H <= MinRectSize {
		return geometry.Rect{}, false
	}
	return *live, true
}

// Cancel aborts the gesture without committing, e.g. when the pointer
// leaves the surface.
func (s *Surface) Cancel() {
	s.reset()
}

func (s *Surface) reset() {
	s.live = nil
	s.dragging = false
	s.startX, s.startY = 0, 0
	s.originX, s.originY = 0, 0
	s.width, s.height = 0, 0
}
