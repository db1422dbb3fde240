package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestStatusFromError(t *testing.T) {
	assert.NoError(t, StatusFromError(nil))

	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"unknown template", fmt.Errorf("lookup: %w", ErrSchemaUnknown), codes.InvalidArgument},
		{"bad input", ErrInvalidInput, codes.InvalidArgument},
		{"missing record", fmt.Errorf("mismatch c1/d1: %w", ErrNotFound), codes.NotFound},
		{"no address", ErrNoAddress, codes.NotFound},
		{"anything else", errors.New("connection reset"), codes.Internal},
		{"wrapped app error", NewAppError("DB_PING_ERROR", "database unreachable", ErrDatabase), codes.Internal},
	}
	for _, tc := range cases {
		got := StatusFromError(tc.err)
		assert.Equal(t, tc.want, status.Code(got), tc.name)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "CONFIG_ERROR")
}
