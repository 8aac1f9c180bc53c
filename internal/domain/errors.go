package domain

import "fmt"

// OutOfOrderError reports a measurement whose timestamp does not advance
// past the previous one seen for its store, or past the last raw timestamp
// overall.
type OutOfOrderError struct {
	Store     string
	Timestamp int64
	Prev      int64
	Global    bool
}

func (e *OutOfOrderError) Error() string {
	if e.Global {
		return fmt.Sprintf("out of order measurement for store %q: timestamp %d does not advance past last raw timestamp %d", e.Store, e.Timestamp, e.Prev)
	}
	return fmt.Sprintf("out of order measurement for store %q: timestamp %d does not advance past %d", e.Store, e.Timestamp, e.Prev)
}

// UnknownEventIDError reports a friction coefficient whose event id maps to
// no known component.
type UnknownEventIDError struct {
	EventID string
}

func (e *UnknownEventIDError) Error() string {
	return fmt.Sprintf("unknown friction event id %q", e.EventID)
}

// AlreadyBuildingError reports a build request for a user whose previous
// build has not finished.
type AlreadyBuildingError struct {
	Username string
}

func (e *AlreadyBuildingError) Error() string {
	return fmt.Sprintf("a model build is already in progress for user %q", e.Username)
}

// NotFoundError reports a lookup miss in the registry or the database.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}
