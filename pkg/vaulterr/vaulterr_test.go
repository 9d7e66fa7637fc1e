package vaulterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := ErrInsufficientFunds.With("required", "10").With("available", "4")

	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.False(t, errors.Is(err, ErrAmountTooSmall))

	wrapped := fmt.Errorf("build: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInsufficientFunds))
	assert.Equal(t, KindResource, KindOf(wrapped))
}

func TestWithDoesNotMutateSentinel(t *testing.T) {
	_ = ErrUTXOLimitExceeded.With("maxSpendable", "1.5")
	assert.Nil(t, ErrUTXOLimitExceeded.Attrs)
}

func TestErrorMessage(t *testing.T) {
	err := Newf(ErrInvalidDestination, "bad checksum").With("field", "to")
	assert.Equal(t, "invalid destination address: bad checksum (field=to)", err.Error())

	v, ok := err.Attr("field")
	require.True(t, ok)
	assert.Equal(t, "to", v)
}

func TestTransientClassification(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transient(cause)

	assert.True(t, Retryable(err))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrIndexerUnavailable))

	// Already-classified errors keep their kind.
	assert.False(t, Retryable(Transient(ErrInvalidFee)))
	assert.Nil(t, Transient(nil))
}

func TestKindOfUnknown(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "timing", ErrCommitTimeout.Kind.String())
}
