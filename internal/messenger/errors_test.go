package messenger_test

import (
	"errors"
	"fmt"
	"messenger/internal/messenger"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
		kind     error
	}{
		{name: "user exists", err: messenger.ErrUserExists, expected: true, kind: messenger.ErrConflict},
		{name: "channel exists", err: messenger.ErrChannelExists, expected: true, kind: messenger.ErrConflict},
		{name: "already member", err: messenger.ErrAlreadyMember, expected: true, kind: messenger.ErrConflict},
		{name: "user not found", err: messenger.ErrUserNotFound, expected: true, kind: messenger.ErrNotFound},
		{name: "channel not found", err: messenger.ErrChannelNotFound, expected: true, kind: messenger.ErrNotFound},
		{name: "not member", err: messenger.ErrNotMember, expected: true, kind: messenger.ErrPrecondition},
		{name: "wrapped with name", err: fmt.Errorf("%w: %s", messenger.ErrUserExists, "Alice"), expected: true, kind: messenger.ErrConflict},
		{name: "missing path", err: messenger.ErrMissingPath, expected: false},
		{name: "io failure", err: fmt.Errorf("failed to save: %w", os.ErrPermission), expected: false},
		{name: "nil", err: nil, expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, messenger.IsReport(tc.err))
			if tc.kind != nil {
				assert.True(t, errors.Is(tc.err, tc.kind))
			}
		})
	}
}
