// SPDX-License-Identifier: MIT
package effect

import "errors"

var (
	ErrUnsupportedFormat = errors.New("effect: unsupported format")
	ErrFormatNotSet      = errors.New("effect: process called before format negotiation")
	ErrLengthMismatch    = errors.New("effect: input and output lengths differ")
	ErrClosed            = errors.New("effect: process called after close")
)
