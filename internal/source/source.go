package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/trackmate/internal/model"
)

// ErrNotFound is returned when the provider has no message with the given ID.
var ErrNotFound = errors.New("message not found")

// AuthError indicates that authentication has failed or expired for a source.
// It is returned by source clients when a 401 response or a rejected login
// is received.
type AuthError struct {
	SourceType model.SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Source defines the contract that every mailbox integration must implement.
type Source interface {
	// Type returns the source type identifier.
	Type() model.SourceType

	// ValidateConnection verifies credentials and connectivity.
	// Returns the mailbox address on success.
	ValidateConnection(ctx context.Context) (string, error)

	// ListEmails returns the messages matching filter, most recent first,
	// each with its body already extracted.
	ListEmails(ctx context.Context, filter model.EmailFilter) ([]model.Email, error)

	// GetEmail retrieves a single message by its provider ID.
	GetEmail(ctx context.Context, id string) (*model.Email, error)
}
