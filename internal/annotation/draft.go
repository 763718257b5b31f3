package annotation

import (
	"context"
	"errors"
	"fmt"

	"github.com/reefwatch/sharkmark/internal/catalog"
	"github.com/reefwatch/sharkmark/internal/geometry"
)

// Step is one of the three capture steps of the annotation flow.
type Step int

// Capture steps, in order.
const (
	StepShark Step = iota + 1 // draw the shark box over the full image
	StepZone                  // draw the identification zone over the shark crop
	StepOrientation           // pick face_left / face_right and submit
)

// Guard and submit errors. All of them leave the draft unchanged.
var (
	ErrSharkRectRequired  = errors.New("shark box must be drawn before continuing")
	ErrZoneRectRequired   = errors.New("identification zone must be drawn before continuing")
	ErrOrientationMissing = errors.New("orientation must be set before submitting")
	ErrNotAtLastStep      = errors.New("submit is only available on the orientation step")
	ErrAlreadyAtFirstStep = errors.New("already at the first step")
	ErrSubmitInFlight     = errors.New("an annotation submit is already in flight")
)

// Annotator is the persistence collaborator the draft submits to.
// *catalog.Client satisfies it.
type Annotator interface {
	Annotate(ctx context.Context, photoID string, req catalog.AnnotateRequest) (*catalog.Photo, error)
}

// Draft is the ephemeral annotation state for a single photo. It owns
// the capture step, the two rectangles and the orientation tag, and it
// is the only writer of those fields while the edit session lasts.
//
// A Draft is single-goroutine state driven by UI events; it is not safe
// for concurrent use.
type Draft struct {
	photo       catalog.Photo
	step        Step
	shark       *geometry.Rect
	zone        *geometry.Rect
	orientation catalog.Orientation
	surface     Surface
	submitting  bool
}

// NewDraft opens a photo for annotation, seeding the draft from any
// existing annotation on the photo.
func NewDraft(photo catalog.Photo) *Draft {
	d := &Draft{step: StepShark}
	d.seed(photo)
	return d
}

func (d *Draft) seed(photo catalog.Photo) {
	d.photo = photo
	d.shark = copyRect(photo.SharkBBox)
	d.zone = copyRect(photo.ZoneBBox)
	d.orientation = photo.Orientation
	d.step = StepShark
	d.surface.Cancel()
}

func copyRect(r *geometry.Rect) *geometry.Rect {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Photo returns the photo this draft annotates.
func (d *Draft) Photo() catalog.Photo {
	return d.photo
}

// Step returns the current capture step.
func (d *Draft) Step() Step {
	return d.step
}

// SharkRect returns the committed shark rectangle, if any.
func (d *Draft) SharkRect() (geometry.Rect, bool) {
	if d.shark == nil {
		return geometry.Rect{}, false
	}
	return *d.shark, true
}

// ZoneRect returns the committed zone rectangle (shark-crop-relative).
func (d *Draft) ZoneRect() (geometry.Rect, bool) {
	if d.zone == nil {
		return geometry.Rect{}, false
	}
	return *d.zone, true
}

// ZoneInImageSpace returns the zone rectangle converted to full-image
// coordinates for read-only overlays. Never persisted.
func (d *Draft) ZoneInImageSpace() (geometry.Rect, bool) {
	if d.shark == nil || d.zone == nil {
		return geometry.Rect{}, false
	}
	return geometry.ToImageSpace(*d.zone, *d.shark), true
}

// Orientation returns the chosen orientation, empty when unset.
func (d *Draft) Orientation() catalog.Orientation {
	return d.orientation
}

// Surface exposes the draw surface so the UI can feed pointer events.
func (d *Draft) Surface() *Surface {
	return &d.surface
}

// EndDrag finishes the active gesture and commits the rectangle to the
// slot owned by the current step. Returns true when a rectangle was
// committed. On the orientation step gestures are ignored.
func (d *Draft) EndDrag() bool {
	rect, ok := d.surface.EndDrag()
	if !ok {
		return false
	}
	switch d.step {
	case StepShark:
		d.shark = &rect
	case StepZone:
		d.zone = &rect
	default:
		return false
	}
	return true
}

// Next advances to the following step. The shark box gates step 1→2 and
// the zone box gates 2→3; a rejected transition is a no-op.
func (d *Draft) Next() error {
	switch d.step {
	case StepShark:
		if d.shark == nil {
			return ErrSharkRectRequired
		}
		d.step = StepZone
	case StepZone:
		if d.zone == nil {
			return ErrZoneRectRequired
		}
		d.step = StepOrientation
	case StepOrientation:
		return ErrNotAtLastStep
	}
	d.surface.Cancel()
	return nil
}

// Back returns to the previous step without clearing anything.
func (d *Draft) Back() error {
	if d.step == StepShark {
		return ErrAlreadyAtFirstStep
	}
	d.step--
	d.surface.Cancel()
	return nil
}

// Reset clears the rectangle owned by the current step and any
// in-progress drag, without changing the step.
func (d *Draft) Reset() {
	switch d.step {
	case StepShark:
		d.shark = nil
	case StepZone:
		d.zone = nil
	case StepOrientation:
		d.orientation = ""
	}
	d.surface.Cancel()
}

// SetOrientation records the orientation tag.
func (d *Draft) SetOrientation(o catalog.Orientation) {
	d.orientation = o
}

// CanSubmit reports whether Submit is enabled: orientation step reached
// and orientation set.
func (d *Draft) CanSubmit() bool {
	return d.step == StepOrientation && d.orientation != "" && d.shark != nil && d.zone != nil
}

// Submit sends the annotation to the persistence collaborator. On
// success the local photo is replaced with the server's version (which
// clears auto_detected) and the draft re-seeds at step 1. On failure
// every piece of draft state is kept so the user can retry without
// redrawing.
func (d *Draft) Submit(ctx context.Context, annotator Annotator) (*catalog.Photo, error) {
	if d.submitting {
		return nil, ErrSubmitInFlight
	}
	if d.step != StepOrientation {
		return nil, ErrNotAtLastStep
	}
	if d.orientation == "" {
		return nil, ErrOrientationMissing
	}
	if d.shark == nil {
		return nil, ErrSharkRectRequired
	}
	if d.zone == nil {
		return nil, ErrZoneRectRequired
	}

	d.submitting = true
	defer func() { d.submitting = false }()

	updated, err := annotator.Annotate(ctx, d.photo.ID, catalog.AnnotateRequest{
		SharkBBox:   *d.shark,
		ZoneBBox:    *d.zone,
		Orientation: d.orientation,
	})
	if err != nil {
		return nil, fmt.Errorf("submitting annotation: %w", err)
	}

	d.seed(*updated)
	return updated, nil
}
