package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 1.23, RoundFloat(1.23456, 2))
	assert.Equal(t, -1.235, RoundFloat(-1.23456, 3))
	assert.Equal(t, 2.0, RoundFloat(1.9999, 2))
}

func TestReverseG(t *testing.T) {
	original := []int{1, 2, 3, 4}
	reversed := ReverseG(original)

	assert.Equal(t, []int{4, 3, 2, 1}, reversed)
	assert.Equal(t, []int{1, 2, 3, 4}, original)

	assert.Empty(t, ReverseG([]string{}))
}
