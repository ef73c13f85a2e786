package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDatabaseError_Classification(t *testing.T) {
	tests := []struct {
		name   string
		cause  error
		status int
		is     error
	}{
		{"not found", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound, ErrNotFound},
		{"permission", fmt.Errorf("read: %w", ErrPermissionDenied), http.StatusForbidden, ErrPermissionDenied},
		{"mutation", fmt.Errorf("write: %w", ErrMutation), http.StatusBadGateway, ErrMutation},
		{"duplicate", errors.New("ERROR: duplicate key value violates unique constraint"), http.StatusConflict, ErrAlreadyExists},
		{"sqlite duplicate", errors.New("UNIQUE constraint failed: credentials.email"), http.StatusConflict, ErrAlreadyExists},
		{"connection", errors.New("connection refused"), http.StatusServiceUnavailable, ErrDatabaseConnection},
		{"generic", errors.New("boom"), http.StatusInternalServerError, ErrDatabaseQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := NewDatabaseError("find", "blog", tt.cause)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.True(t, errors.Is(apiErr, tt.is), "expected %v in chain of %v", tt.is, apiErr)
		})
	}
}

func TestNewDatabaseError_PassesApiErrThrough(t *testing.T) {
	original := NewValidationError("title", "is required")
	assert.Same(t, original, NewDatabaseError("create", "blog", original))
}

func TestValidationError(t *testing.T) {
	err := NewMissingRequiredFieldError("excerpt")
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "excerpt", err.Field)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "validation failure: excerpt is required", err.Error())
}

func TestGetFullError_FollowsCauses(t *testing.T) {
	inner := NewMutationError("update blog", errors.New("store offline"))
	outer := NewInternalErrorWithCause("save failed", inner)

	assert.Equal(t, "save failed -> mutation failed: failed to update blog -> store offline", outer.GetFullError())
}

func TestNotFoundHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("blog")))
	assert.False(t, IsNotFound(NewAlreadyExists("blog")))
}

func TestAuthErrors(t *testing.T) {
	assert.True(t, IsInvalidTokenError(NewRevokedTokenError()))
	assert.True(t, IsInvalidTokenError(NewInvalidTokenError(errors.New("bad sig"))))
	assert.True(t, IsNotAdminError(NewNotAdminError()))
	assert.True(t, IsMissingTokenError(NewMissingTokenError()))
	assert.False(t, IsInvalidTokenError(NewMissingTokenError()))
}
