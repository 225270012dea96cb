package util

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestCeilLog2(t *testing.T) {
	c := qt.New(t)
	for n, want := range map[int]int{0: 0, 1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 1024: 10, 1025: 11} {
		c.Assert(CeilLog2(n), qt.Equals, want, qt.Commentf("n=%d", n))
	}
}

func TestRandomBytes(t *testing.T) {
	c := qt.New(t)
	a, b := RandomBytes(32), RandomBytes(32)
	c.Assert(a, qt.HasLen, 32)
	c.Assert(bytes.Equal(a, b), qt.IsFalse)
}
