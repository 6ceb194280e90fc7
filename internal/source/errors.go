package source

import "errors"

var (
	ErrUnknownFormat    = errors.New("unknown audio file format")
	ErrNotWAV           = errors.New("not a WAV file")
	ErrNotAIFF          = errors.New("not an AIFF file")
	ErrNotPCM           = errors.New("only integer PCM is supported")
	ErrUnsupportedDepth = errors.New("unsupported bit depth")
	ErrNoChannels       = errors.New("source reports no channels")
	ErrDstNotFrameSized = errors.New("dst size must be a multiple of the channel count")
	ErrNotRewindable    = errors.New("source cannot be rewound")
)
