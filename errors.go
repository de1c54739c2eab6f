package trendtap

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput means no keywords were available to cluster
	ErrEmptyInput = errors.New("no keywords to cluster")

	// ErrUnsupportedMethod means the clustering method is not recognised
	ErrUnsupportedMethod = errors.New("unsupported clustering method")

	// ErrAmbiguousSource means both a stored result and inline keywords were given
	ErrAmbiguousSource = errors.New("keyword source is ambiguous")

	ErrClusterNotFound    = errors.New("cluster not found")
	ErrResultNotFound     = errors.New("external tool result not found")
	ErrFieldNotUpdatable  = errors.New("field is not updatable")
	ErrTimeBudgetExceeded = errors.New("clustering time budget exceeded")
)

// ClusterPersistenceError describes a failure to build or store one cluster of a batch
type ClusterPersistenceError struct {
	Index int
	Name  string
	Err   error
}

func (e *ClusterPersistenceError) Error() string {
	return fmt.Sprintf("cluster %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *ClusterPersistenceError) Unwrap() error {
	return e.Err
}
