package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("withdraw: %w", ErrInsufficientBalance.WithMessage("balance 10.00 below 20.00"))

	assert.True(t, stderrors.Is(wrapped, ErrInsufficientBalance))
	assert.False(t, stderrors.Is(wrapped, ErrWalletNotFound))
	assert.Equal(t, KindInsufficientFunds, KindOf(wrapped))
}

func TestDomainError_WrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := ErrLockUnavailable.Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrLockUnavailable)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Nil(t, ErrLockUnavailable.Err, "sentinel must not be mutated")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"lock unavailable", ErrLockUnavailable, true},
		{"transient gateway", Gateway("stripe unreachable", true, nil), true},
		{"gateway rejection", Gateway("card declined", false, nil), false},
		{"conflict", ErrAlreadyProcessed, false},
		{"plain error", stderrors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(stderrors.New("boom")))
	assert.Equal(t, "validation", Validation("bad %s", "input").Kind.String())
}
