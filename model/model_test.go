package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeltaBatch_Validate(t *testing.T) {
	cases := []struct {
		name    string
		batch   DeltaBatch
		wantErr bool
	}{
		{"valid single", DeltaBatch{S: []uint64{1}, P: []uint64{1}, O: []uint64{1}}, false},
		{"valid max", DeltaBatch{S: make([]uint64, 8), P: make([]uint64, 8), O: make([]uint64, 8)}, false},
		{"empty", DeltaBatch{}, true},
		{"over bound", DeltaBatch{S: make([]uint64, 9), P: make([]uint64, 9), O: make([]uint64, 9)}, true},
		{"mismatched arrays", DeltaBatch{S: []uint64{1, 2}, P: []uint64{1}, O: []uint64{1, 2}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.batch.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeltaBatch_N(t *testing.T) {
	d := DeltaBatch{S: []uint64{1, 2, 3}}
	assert.Equal(t, 3, d.N())
}
