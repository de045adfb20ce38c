package tools

import (
	"encoding/binary"
	"math"
)

// Encodes an int as a 4 bytes little endian unsigned integer
func ConvertIntToByteArray(value int) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(value))
	return b
}

// Encodes every value as a little endian float32, losing precision
func ConvertTruncateFloat64ToFloat32ByteArray(values []float64) []byte {
	b := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(v)))
	}
	return b
}
