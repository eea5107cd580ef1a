package script

import "fmt"

// ValidationError reports an item that cannot be added or stored.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// SchemaError reports a persisted script that does not match the file
// format. Index is the position of the first offending element, or -1 when
// the document itself is malformed.
type SchemaError struct {
	Index  int
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := e.Reason
	if e.Index >= 0 {
		msg = fmt.Sprintf("item %d: %s", e.Index, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "invalid script file: " + msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// NotFoundError reports an id that is not in the store.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item %q not found", e.ID)
}

// TypeMismatchError reports an operation applied to the wrong kind of item.
type TypeMismatchError struct {
	ID   string
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("item %q is %s, expected %s", e.ID, e.Got, e.Want)
}
