package source

import (
	"io"

	"github.com/go-audio/aiff"
)

// AIFFDecoder reads AIFF files through go-audio/aiff.
type AIFFDecoder struct{}

func (AIFFDecoder) Decode(r io.ReadSeeker) (Source, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotAIFF
	}
	dec.ReadInfo()
	return newIntSource(dec, dec.Format(), int(dec.BitDepth))
}
