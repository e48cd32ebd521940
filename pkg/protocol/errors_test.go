package protocol

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_KindMatching(t *testing.T) {
	err := Errorf(ErrMissingPrivateKey, "message %s", "abc")

	assert.True(t, errors.Is(err, ErrMissingPrivateKey))
	assert.False(t, errors.Is(err, ErrNullEntity))
	assert.Equal(t, "as2: private key required for enveloped data: message abc", err.Error())
}

func TestError_WrapPreservesCause(t *testing.T) {
	err := Wrap(ErrDecompression, io.ErrUnexpectedEOF, "compressed entity")

	assert.True(t, errors.Is(err, ErrDecompression))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Contains(t, err.Error(), "unexpected EOF")
}

func TestKindOf(t *testing.T) {
	var wrapped error = Errorf(ErrProtocolFormat, "no boundary")
	outer := errors.Join(errors.New("reading message"), wrapped)

	assert.Equal(t, ErrProtocolFormat, KindOf(wrapped))
	assert.Equal(t, ErrProtocolFormat, KindOf(outer))
	assert.Nil(t, KindOf(io.EOF))
}
