package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPoolResetsOnPut(t *testing.T) {
	p := NewBufferPool(64)
	b := p.Get()
	assert.Equal(t, 0, len(*b))
	assert.GreaterOrEqual(t, cap(*b), 64)

	*b = append(*b, "frame"...)
	p.Put(b)
	assert.Equal(t, 0, len(*b))
}

func TestPoolBuildsWithCtor(t *testing.T) {
	type item struct{ n int }
	p := NewPool(func() *item { return &item{n: 7} }, nil)
	assert.Equal(t, 7, p.Get().n)
}
