package herostore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrHeroNotFound indicates a hero record was not found
	ErrHeroNotFound = errors.New("superhero not found")

	// ErrImageNotFound indicates an image was not found on a hero or in storage
	ErrImageNotFound = errors.New("image not found")

	// ErrUnsupportedImage indicates a file is not an allow-listed image type
	ErrUnsupportedImage = errors.New("unsupported image type")

	// ErrBlobStoreNotConfigured indicates the service was built without a blob store
	ErrBlobStoreNotConfigured = errors.New("blob store not configured")
)

// ValidationError reports the per-field messages collected while validating
// hero input. It maps to a 400 at the HTTP boundary.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

// HeroError represents an error related to operations on a hero record
type HeroError struct {
	HeroID uuid.UUID
	Op     string
	Err    error
}

func (e *HeroError) Error() string {
	return fmt.Sprintf("hero operation %s failed for hero %s: %v", e.Op, e.HeroID, e.Err)
}

func (e *HeroError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
