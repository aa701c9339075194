package engine

import (
	"errors"
	"fmt"

	jerrors "github.com/juju/errors"
)

var (
	ErrTableNotFound = errors.New("table not exist")
	ErrRowNotFound   = errors.New("row not exist")
	ErrReadOnlyTable = errors.New("table is read only")
	ErrInvalidRows   = errors.New("rows must be a list of objects")
	ErrNoItems       = errors.New("quote has no items")
	ErrIntegrity     = errors.New("integrity constraint violated")
)

// FieldError reports the first writable column whose value failed its rule.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid value for column %q", e.Field)
}

// RefError reports a foreign-key column whose reference does not resolve.
type RefError struct {
	Field    string
	RefTable string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("column %q does not reference an existing row in %q", e.Field, e.RefTable)
}

// Code maps an engine error to its stable outward error string.
func Code(err error) string {
	if err == nil {
		return ""
	}
	switch cause := jerrors.Cause(err); cause {
	case ErrTableNotFound:
		return "table_not_found"
	case ErrRowNotFound:
		return "not_found"
	case ErrReadOnlyTable:
		return "readonly"
	case ErrInvalidRows:
		return "invalid_rows"
	case ErrNoItems:
		return "no_items"
	case ErrIntegrity:
		return "integrity_error"
	default:
		var fe *FieldError
		if errors.As(cause, &fe) {
			return "invalid_" + fe.Field
		}
		var re *RefError
		if errors.As(cause, &re) {
			return "invalid_" + re.Field
		}
		return "internal_error"
	}
}
