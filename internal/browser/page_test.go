package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadlessProduct(t *testing.T) {
	assert.True(t, headlessProduct("HeadlessChrome/126.0.6478.126"))
	assert.True(t, headlessProduct("headlesschrome/94.0"))
	assert.False(t, headlessProduct("Chrome/126.0.6478.126"))
	assert.False(t, headlessProduct(""))
}
