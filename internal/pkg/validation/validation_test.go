package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPassword(t *testing.T) {
	assert.True(t, IsValidPassword("abc123!x"))
	assert.False(t, IsValidPassword("short1!"))
	assert.False(t, IsValidPassword("nodigits!!"))
	assert.False(t, IsValidPassword("nospecial123"))
}

func TestIsValidLabel(t *testing.T) {
	assert.True(t, IsValidLabel("Fort Alpha"))
	assert.True(t, IsValidLabel("M4 Carbine (5.56)"))
	assert.False(t, IsValidLabel("   "))
	assert.False(t, IsValidLabel("-leading"))
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "Fort Alpha", NormalizeLabel("  Fort   Alpha "))
}

func TestIsValidFullname(t *testing.T) {
	assert.True(t, IsValidFullname("Jane O'Neil"))
	assert.False(t, IsValidFullname("R2D2"))
}
