package generic

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolResetsOnPut(t *testing.T) {
	created := 0
	p := NewPool(func() *bytes.Buffer {
		created++
		return new(bytes.Buffer)
	}, func(b *bytes.Buffer) { b.Reset() })

	buf := p.Get()
	assert.Equal(t, 1, created)
	buf.WriteString("frame")
	p.Put(buf)

	// sync.Pool may drop values at any time, only the reset is guaranteed
	assert.Zero(t, buf.Len())
	assert.NotNil(t, p.Get())
}

func TestPoolWithoutReset(t *testing.T) {
	p := NewPool(func() []int { return make([]int, 0, 4) }, nil)
	s := p.Get()
	assert.Equal(t, 4, cap(s))
	p.Put(append(s, 1))
}
