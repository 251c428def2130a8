package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetGravatarURLNormalizesEmail(t *testing.T) {
	plain := GetGravatarURL("matsuo@example.jp", 200)
	shouty := GetGravatarURL("  MATSUO@example.JP ", 200)

	assert.Equal(t, plain, shouty)
	assert.Contains(t, plain, "s=200")
	assert.Contains(t, plain, "d=mp")
}

func TestGetGravatarURLDefaultsSize(t *testing.T) {
	assert.Contains(t, GetGravatarURL("matsuo@example.jp", 0), "s=200")
	assert.Contains(t, GetGravatarURL("matsuo@example.jp", 80), "s=80")
}
