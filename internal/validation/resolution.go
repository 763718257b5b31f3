package validation

import "strings"

// Resolution is one of the four mutually exclusive ways a photo leaves
// the validation queue. Modelling it as a closed sum makes it
// impossible to send an action without its required extras.
type Resolution interface {
	isResolution()
}

// Confirm links the photo to the currently selected ranked candidate.
type Confirm struct{}

// SelectOther links the photo to an identity picked from the catalog.
type SelectOther struct {
	SharkID string
}

// CreateNew creates a fresh identity with a temporary name and links
// the photo to it.
type CreateNew struct {
	Name              string
	SetAsProfilePhoto bool
}

// TrimmedName returns the name with surrounding whitespace removed.
func (c CreateNew) TrimmedName() string {
	return strings.TrimSpace(c.Name)
}

// LeaveUnlinked resolves the photo without assigning an identity.
type LeaveUnlinked struct{}

func (Confirm) isResolution()       {}
func (SelectOther) isResolution()   {}
func (CreateNew) isResolution()     {}
func (LeaveUnlinked) isResolution() {}
