package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%laptop%", containsPattern("  LapTop "))
	assert.Equal(t, "%łukasz%", containsPattern("Łukasz"))
}
