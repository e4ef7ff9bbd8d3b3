package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryCodecRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	encoded, err := EncodeKey(kp.Public, FormatBinary)
	require.NoError(t, err)
	require.Len(t, encoded, KeySize)

	decoded, err := DecodeKey(encoded, FormatBinary)
	require.NoError(t, err)
	assert.Equal(t, kp.Public, decoded)
}

func TestHexCodecRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	encoded, err := EncodeKey(kp.Public, FormatHex)
	require.NoError(t, err)
	require.Len(t, encoded, 64)
	for _, c := range encoded {
		assert.Contains(t, []byte("0123456789abcdef"), c)
	}

	decoded, err := DecodeKey(encoded, FormatHex)
	require.NoError(t, err)
	assert.Equal(t, kp.Public, decoded)
}

func TestDecodeKeyRejectsBadLengths(t *testing.T) {
	_, err := DecodeKey(make([]byte, KeySize-1), FormatBinary)
	assert.ErrorIs(t, err, ErrInvalidKeyEncoding)

	_, err = DecodeKey(make([]byte, 63), FormatHex)
	assert.ErrorIs(t, err, ErrInvalidKeyEncoding)
}

func TestDecodeKeyRejectsBadHex(t *testing.T) {
	bad := make([]byte, 64)
	for i := range bad {
		bad[i] = 'z'
	}
	_, err := DecodeKey(bad, FormatHex)
	assert.ErrorIs(t, err, ErrInvalidKeyEncoding)
}

func TestUnknownFormat(t *testing.T) {
	var key [KeySize]byte
	_, err := EncodeKey(key, KeyFormat(99))
	assert.ErrorIs(t, err, ErrUnknownKeyFormat)

	_, err = DecodeKey(make([]byte, KeySize), KeyFormat(99))
	assert.ErrorIs(t, err, ErrUnknownKeyFormat)
}
