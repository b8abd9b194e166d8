package guild

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("guild: entity not found")

	// ErrFatal marks failures after which no further call can succeed, such as
	// lost authorization. Engines abort the whole run when they see it.
	ErrFatal = errors.New("guild: fatal client failure")
)

// IsFatal reports whether err wraps ErrFatal.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
