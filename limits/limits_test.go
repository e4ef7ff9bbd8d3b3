package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMessageSize(t *testing.T) {
	small := make([]byte, 100)
	require.NoError(t, ValidateMessageSize(small, MaxNoiseMessage))

	exact := make([]byte, MaxNoiseMessage)
	require.NoError(t, ValidateMessageSize(exact, MaxNoiseMessage))

	over := make([]byte, MaxNoiseMessage+1)
	err := ValidateMessageSize(over, MaxNoiseMessage)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestValidateDeclaredSize(t *testing.T) {
	require.NoError(t, ValidateDeclaredSize(0, MaxNoiseMessage))
	require.NoError(t, ValidateDeclaredSize(MaxNoiseMessage, MaxNoiseMessage))

	// A malicious peer advertising a huge frame must be rejected before
	// any allocation happens.
	err := ValidateDeclaredSize(10_000_000, MaxNoiseMessage)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestLimitConsistency(t *testing.T) {
	assert.Equal(t, MaxNoiseMessage-AEADTagSize, MaxFramePayload)
	assert.Less(t, MaxHandshakePayload, MaxFramePayload)
}
