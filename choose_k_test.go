package trendtap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElbow(t *testing.T) {
	tests := []struct {
		name     string
		inertias []float64
		want     int
	}{
		{"none", nil, 2},
		{"too few", []float64{10, 9}, 2},
		{"first drop largest", []float64{10, 4, 3, 2}, 2},
		{"second drop largest", []float64{10, 9, 3, 2}, 3},
		{"flat", []float64{5, 5, 5}, 3},
		{"increasing", []float64{1, 2, 3}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, elbow(tt.inertias))
		})
	}
}

func TestChooseK_SmallInput(t *testing.T) {
	for n := 0; n < 4; n++ {
		records := make([]KeywordRecord, n)
		for i := range records {
			records[i] = KeywordRecord{Keyword: "running shoes"}
		}
		assert.Equal(t, 2, ChooseK(Prepare(records), 20))
	}
}

func TestChooseK_Range(t *testing.T) {
	prepared := Prepare(twoTopicKeywords())

	k := ChooseK(prepared, 20)
	assert.GreaterOrEqual(t, k, 2)
	assert.LessOrEqual(t, k, len(prepared)/2)
	assert.Equal(t, k, ChooseK(prepared, 20))
}

func TestChooseK_MaxClustersBound(t *testing.T) {
	prepared := Prepare(twoTopicKeywords())

	// a single candidate k leaves too few inertias for the elbow
	assert.Equal(t, 2, ChooseK(prepared, 2))
}
