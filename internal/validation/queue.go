// Package validation holds the headless controllers behind the
// validation queue screen: the working-set queue with its cursor, the
// candidate ranking view and the identity picker search.
package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/reefwatch/sharkmark/internal/catalog"
)

// Controller-level errors.
var (
	ErrActionInFlight     = errors.New("a resolution action is already in flight")
	ErrNoCurrentPhoto     = errors.New("the validation queue is empty")
	ErrNoCandidateChosen  = errors.New("confirm requires a selected candidate")
	ErrNoIdentityPicked   = errors.New("select requires a picked identity")
	ErrEmptySharkName     = errors.New("a new shark needs a non-empty name")
)

// Service is the persistence collaborator of the queue controller.
// *catalog.Client satisfies it.
type Service interface {
	ValidationQueue(ctx context.Context) ([]catalog.Photo, error)
	Sharks(ctx context.Context, query string) ([]catalog.Shark, error)
	Validate(ctx context.Context, photoID string, req catalog.ValidateRequest) (*catalog.Photo, error)
	SuggestName(ctx context.Context) (string, error)
}

// Modal identifies which focus-capturing overlay is open, if any.
// While a modal is open keyboard navigation must not move the cursor.
type Modal int

// Modal states.
const (
	ModalNone Modal = iota
	ModalCreateIdentity
	ModalPicker
	ModalEnlargedImage
)

// Key is an abstract keyboard event consumed by the controller.
type Key int

// Keys the controller reacts to.
const (
	KeyArrowLeft Key = iota
	KeyArrowRight
)

// Queue sequentially resolves a working set of photos awaiting identity
// assignment. The working set is mutated only by this controller and
// only after a successful server response; it is single-goroutine state
// driven by UI events.
type Queue struct {
	svc Service

	items  []catalog.Photo
	sharks []catalog.Shark
	cursor int

	ranking      Ranking
	modal        Modal
	secondaryTab bool
	submitting   bool
}

// NewQueue creates an unloaded queue controller.
func NewQueue(svc Service) *Queue {
	return &Queue{svc: svc}
}

// Load fetches the queue and the identity catalog once and resets the
// cursor to the first photo. A load failure leaves the controller
// empty; retry is a manual re-Load.
func (q *Queue) Load(ctx context.Context) error {
	items, err := q.svc.ValidationQueue(ctx)
	if err != nil {
		return fmt.Errorf("loading validation queue: %w", err)
	}
	sharks, err := q.svc.Sharks(ctx, "")
	if err != nil {
		return fmt.Errorf("loading identity catalog: %w", err)
	}

	q.items = items
	q.sharks = sharks
	q.cursor = 0
	q.resetRanking()
	return nil
}

// Len returns the size of the working set.
func (q *Queue) Len() int {
	return len(q.items)
}

// Empty reports the terminal queue-empty condition.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// Cursor returns the current cursor position.
func (q *Queue) Cursor() int {
	return q.cursor
}

// Items returns the working set in display order.
func (q *Queue) Items() []catalog.Photo {
	return q.items
}

// Catalog returns the loaded identity catalog.
func (q *Queue) Catalog() []catalog.Shark {
	return q.sharks
}

// Current returns the photo at the cursor.
func (q *Queue) Current() (catalog.Photo, bool) {
	if q.Empty() {
		return catalog.Photo{}, false
	}
	return q.items[q.cursor], true
}

// Next moves the cursor forward, clamped to the working set, and
// resets the candidate selection.
func (q *Queue) Next() {
	q.moveCursor(q.cursor + 1)
}

// Prev moves the cursor backward, clamped, and resets the selection.
func (q *Queue) Prev() {
	q.moveCursor(q.cursor - 1)
}

func (q *Queue) moveCursor(to int) {
	if q.Empty() {
		return
	}
	if to < 0 {
		to = 0
	}
	if to > len(q.items)-1 {
		to = len(q.items) - 1
	}
	if to == q.cursor {
		return
	}
	q.cursor = to
	q.resetRanking()
}

// resetRanking rebinds the ranking view to the photo at the cursor,
// dropping any selection.
func (q *Queue) resetRanking() {
	if photo, ok := q.Current(); ok {
		q.ranking = NewRanking(photo)
		return
	}
	q.ranking = Ranking{}
}

// Ranking exposes the candidate ranking view for the current photo.
func (q *Queue) Ranking() *Ranking {
	return &q.ranking
}

// HandleKey maps arrow keys to Prev/Next. Keys are suppressed entirely
// while a modal or the enlarged-image view is open, or while a
// secondary tab is active, so a focused overlay can never move the
// cursor underneath itself.
func (q *Queue) HandleKey(key Key) {
	if q.modal != ModalNone || q.secondaryTab {
		return
	}
	switch key {
	case KeyArrowLeft:
		q.Prev()
	case KeyArrowRight:
		q.Next()
	}
}

// Modal returns the currently open modal.
func (q *Queue) Modal() Modal {
	return q.modal
}

// OpenModal opens a focus-capturing overlay.
func (q *Queue) OpenModal(m Modal) {
	q.modal = m
}

// CloseModal closes any open overlay.
func (q *Queue) CloseModal() {
	q.modal = ModalNone
}

// SetSecondaryTab marks a secondary browsing view (e.g. the unlinked
// tab) active or inactive.
func (q *Queue) SetSecondaryTab(active bool) {
	q.secondaryTab = active
}

// Submitting reports whether a resolution action is in flight. All
// action buttons are disabled while true.
func (q *Queue) Submitting() bool {
	return q.submitting
}

// OpenCreateModal opens the create-identity modal and fetches a
// suggested name. The suggestion is best-effort: a failure degrades to
// an empty string and never blocks the modal.
func (q *Queue) OpenCreateModal(ctx context.Context) string {
	q.modal = ModalCreateIdentity
	name, err := q.svc.SuggestName(ctx)
	if err != nil {
		return ""
	}
	return name
}

// Resolve applies a resolution action to the photo at the cursor.
// Exactly one action may be in flight at a time. On success the photo
// is removed from the working set, the cursor is clamped and the
// candidate selection cleared; on failure items, cursor and selection
// are untouched so the same action can be retried.
func (q *Queue) Resolve(ctx context.Context, r Resolution) error {
	if q.submitting {
		return ErrActionInFlight
	}
	photo, ok := q.Current()
	if !ok {
		return ErrNoCurrentPhoto
	}

	req, err := q.buildRequest(r)
	if err != nil {
		return err
	}

	q.submitting = true
	defer func() { q.submitting = false }()

	if _, err := q.svc.Validate(ctx, photo.ID, req); err != nil {
		return fmt.Errorf("resolving photo %s: %w", photo.ID, err)
	}

	q.removeByID(photo.ID)
	q.modal = ModalNone
	return nil
}

// buildRequest converts a Resolution into the wire payload, checking
// the action-specific required fields. The type switch is exhaustive
// over the four resolution kinds.
func (q *Queue) buildRequest(r Resolution) (catalog.ValidateRequest, error) {
	switch res := r.(type) {
	case Confirm:
		selected, ok := q.ranking.Selected()
		if !ok {
			return catalog.ValidateRequest{}, ErrNoCandidateChosen
		}
		return catalog.ValidateRequest{
			Action:            catalog.ActionConfirm,
			SharkID:           selected.SharkID,
			SetAsProfilePhoto: false,
		}, nil
	case SelectOther:
		if res.SharkID == "" {
			return catalog.ValidateRequest{}, ErrNoIdentityPicked
		}
		return catalog.ValidateRequest{
			Action:  catalog.ActionSelect,
			SharkID: res.SharkID,
		}, nil
	case CreateNew:
		name := res.TrimmedName()
		if name == "" {
			return catalog.ValidateRequest{}, ErrEmptySharkName
		}
		return catalog.ValidateRequest{
			Action:            catalog.ActionCreate,
			SharkName:         name,
			NameStatus:        catalog.NameStatusTemporary,
			SetAsProfilePhoto: res.SetAsProfilePhoto,
		}, nil
	case LeaveUnlinked:
		return catalog.ValidateRequest{Action: catalog.ActionUnlink}, nil
	default:
		return catalog.ValidateRequest{}, fmt.Errorf("unknown resolution %T", r)
	}
}

// removeByID removes a photo from the working set by identity and
// clamps the cursor. Display order is all the slice position is used
// for.
func (q *Queue) removeByID(photoID string) {
	kept := q.items[:0]
	for _, p := range q.items {
		if p.ID != photoID {
			kept = append(kept, p)
		}
	}
	q.items = kept

	if q.cursor > len(q.items)-1 {
		q.cursor = len(q.items) - 1
	}
	if q.cursor < 0 {
		q.cursor = 0
	}
	q.resetRanking()
}
