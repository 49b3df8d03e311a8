package query

import "errors"

var (
	// ErrEmptyStatement is returned when the SQL to execute is blank.
	ErrEmptyStatement = errors.New("sql statement is required")

	// ErrMultipleStatements is returned in read-only mode when the SQL text
	// holds more than one statement. A second statement could end the
	// READ ONLY transaction and run outside it.
	ErrMultipleStatements = errors.New("only a single statement is allowed in read-only mode")

	// ErrUnknownObjectType is returned for an object type other than
	// table, view or sequence.
	ErrUnknownObjectType = errors.New("unknown object type")

	// ErrObjectNotFound is returned when a table or view has no columns
	// visible to the connected role.
	ErrObjectNotFound = errors.New("object not found")
)
