package entropy

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestNewSeed(t *testing.T) {
	orig := reader
	t.Cleanup(func() { reader = orig })

	reader = bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	assert.Equal(t, int64(1<<63-1), NewSeed())

	reader = bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 2})
	assert.Equal(t, int64(1), NewSeed())

	reader = failingReader{}
	assert.GreaterOrEqual(t, NewSeed(), int64(0))
}
