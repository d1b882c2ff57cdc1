package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestedChange(t *testing.T) {
	change, ok := RequestedChange(ModifyInstruction("make header blue"))
	assert.True(t, ok)
	assert.Equal(t, "make header blue", change)

	_, ok = RequestedChange("make header blue")
	assert.False(t, ok)
	_, ok = RequestedChange(ModifyInstruction("x") + " trailing")
	assert.False(t, ok)
}
