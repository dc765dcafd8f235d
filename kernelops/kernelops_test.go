package kernelops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestASK_FindsSharedByte(t *testing.T) {
	assert.True(t, ASK([]byte{1, 2, 3}, []byte{9, 9, 3, 9}))
	assert.False(t, ASK([]byte{1, 2, 3}, []byte{9, 9, 9, 9}))
}

func TestASK_RejectsOversizedInputs(t *testing.T) {
	big := make([]byte, 9)
	assert.False(t, ASK(big, []byte{1}))
	assert.False(t, ASK([]byte{1}, big))
}

func TestCOUNT_RequiresEveryInputByteToBePresent(t *testing.T) {
	assert.True(t, COUNT([]byte{1, 2}, []byte{2, 1, 5}))
	assert.False(t, COUNT([]byte{1, 2, 3}, []byte{1, 2}))
}

func TestCOUNT_RejectsEmptyInput(t *testing.T) {
	assert.False(t, COUNT(nil, []byte{1}))
}

func TestCOUNT_RejectsOversized(t *testing.T) {
	big := make([]byte, 9)
	assert.False(t, COUNT(big, []byte{1}))
}

func TestCOMPARE_EqualAndUnequalRuns(t *testing.T) {
	assert.True(t, COMPARE([]byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.False(t, COMPARE([]byte{1, 2, 3}, []byte{1, 2, 4}))
}

func TestCOMPARE_RejectsLengthMismatch(t *testing.T) {
	assert.False(t, COMPARE([]byte{1, 2}, []byte{1, 2, 3}))
}

func TestCOMPARE_RejectsOversized(t *testing.T) {
	big := make([]byte, 9)
	assert.False(t, COMPARE(big, big))
}

func TestCOMPARE_IsConstantTimeRegardlessOfMismatchPosition(t *testing.T) {
	a := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	mismatchEarly := []byte{9, 2, 3, 4, 5, 6, 7, 8}
	mismatchLate := []byte{1, 2, 3, 4, 5, 6, 7, 9}
	// not a timing assertion — pins that both mismatch positions are
	// detected identically (both false), i.e. there's no early exit that
	// could produce a different result depending on mismatch location.
	assert.False(t, COMPARE(a, mismatchEarly))
	assert.False(t, COMPARE(a, mismatchLate))
}

func TestVALIDATE(t *testing.T) {
	assert.True(t, VALIDATE([]byte{1}))
	assert.True(t, VALIDATE(make([]byte, 8)))
	assert.False(t, VALIDATE(nil))
	assert.False(t, VALIDATE(make([]byte, 9)))
}
