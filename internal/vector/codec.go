package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

const float32Size = 4

// Encode packs a vector as little-endian float32 values.
func Encode(v []float32) []byte {
	out := make([]byte, len(v)*float32Size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*float32Size:], math.Float32bits(f))
	}
	return out
}

// Decode unpacks a vector written by Encode. A nil or empty slice decodes to nil.
func Decode(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%float32Size != 0 {
		return nil, fmt.Errorf("embedding blob has %d bytes, not a multiple of %d", len(b), float32Size)
	}
	out := make([]float32, len(b)/float32Size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*float32Size:]))
	}
	return out, nil
}
