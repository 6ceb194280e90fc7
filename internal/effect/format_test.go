// SPDX-License-Identifier: MIT
package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatString(t *testing.T) {
	assert.Equal(t, "48000Hz/1ch/32-bit float", FloatPCM(48000, 1).String())
	assert.Equal(t, "int", EncodingInt.String())
	assert.Equal(t, "unknown", Encoding(7).String())
}

func TestSupports(t *testing.T) {
	formats := NewEcho(nil, false).SupportedFormats()

	assert.True(t, Supports(formats, FloatPCM(44100, 1)))
	assert.True(t, Supports(formats, FloatPCM(48000, 1)))
	assert.False(t, Supports(formats, FloatPCM(22050, 1)))
	assert.False(t, Supports(nil, FloatPCM(44100, 1)))
}
