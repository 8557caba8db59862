package resource

import "errors"

var (
	// ErrCannotLinkLocal is returned when the link target has never been stored.
	ErrCannotLinkLocal = errors.New("resource: cannot link to a local resource")
	// ErrAlreadyStored is returned by Post on a persisted resource.
	ErrAlreadyStored = errors.New("resource: already stored")
	// ErrNotYetStored is returned by operations that need a persisted resource.
	ErrNotYetStored = errors.New("resource: not yet stored")
	// ErrDuplicateKey is returned by auto-post when the key hint is taken.
	ErrDuplicateKey = errors.New("resource: duplicate key")
	// ErrInvalidType is returned by Register for an incomplete TypeConfig.
	ErrInvalidType = errors.New("resource: invalid type")
)

// Override is an instance-level auto-update setting.
type Override int

const (
	// Inherit defers to the type's AutoUpdate.
	Inherit Override = iota
	// Yes syncs after every mutation.
	Yes
	// No never syncs automatically.
	No
)

func (o Override) String() string {
	switch o {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "inherit"
	}
}

const (
	stateLocal     = "local"
	statePersisted = "persisted"
	eventPersist   = "persist"
)
