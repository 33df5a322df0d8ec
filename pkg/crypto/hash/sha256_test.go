package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSha256Vector(t *testing.T) {
	want, err := Sha256HashFromHex("9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08")
	assert.NoError(t, err)

	assert.Equal(t, want, Sha256Digest([]byte("test")))

	h := NewSha256Hasher()
	_, _ = h.Write([]byte("te"))
	_, _ = h.Write([]byte("st"))
	assert.Equal(t, want, h.Finish())
}
