package model

import "errors"

var (
	// ErrConstraint means an operation would break the single-open-entry rule
	// or references a project that does not exist.
	ErrConstraint = errors.New("constraint violation")
	// ErrNotFound means the targeted entry or project no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrStorage matches any *StorageError.
	ErrStorage = errors.New("storage failure")
)

// StorageError wraps an I/O failure of the backing store.
type StorageError struct {
	Op  string
	Err error
}

func (err *StorageError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err *StorageError) Unwrap() error {
	return err.Err
}

// Is lets errors.Is(err, ErrStorage) match.
func (err *StorageError) Is(target error) bool {
	return target == ErrStorage
}
