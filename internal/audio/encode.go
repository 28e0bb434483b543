package audio

import (
	"encoding/binary"
	"math"
)

// EncodeEQStreamer builds an EQ-Streamer datagram from 32 raw bands.
func EncodeEQStreamer(version uint8, raw [eqRawBands]uint8) []byte {
	p := make([]byte, eqPacketLen)
	copy(p, eqTag)
	p[2] = version
	copy(p[eqHeaderLen:], raw[:])
	return p
}

// EncodeWLEDv1 builds a WLED audio sync v1 datagram. The 32 legacy value
// bytes are left zero.
func EncodeWLEDv1(f Frame) []byte {
	le := binary.LittleEndian
	p := make([]byte, wledV1PacketLen)
	copy(p, wledV1Tag)
	off := wledHeaderLen + 32

	le.PutUint32(p[off:], uint32(int32(f.SampleAGC)))
	off += 4
	le.PutUint32(p[off:], uint32(int32(f.SampleRaw)))
	off += 4
	le.PutUint32(p[off:], math.Float32bits(float32(f.SampleAvg)))
	off += 4
	p[off] = f.SamplePeak
	off++
	copy(p[off:], f.Bands[:])
	off += NumBands
	le.PutUint64(p[off:], math.Float64bits(f.FFTMagnitude))
	off += 8
	le.PutUint64(p[off:], math.Float64bits(f.FFTMajorPeak))
	return p
}

// EncodeWLEDv2 builds a WLED audio sync v2 datagram.
func EncodeWLEDv2(f Frame) []byte {
	le := binary.LittleEndian
	p := make([]byte, wledV2PacketLen)
	copy(p, wledV2Tag)
	off := wledHeaderLen + 2

	le.PutUint32(p[off:], math.Float32bits(float32(f.SampleRaw)))
	off += 4
	le.PutUint32(p[off:], math.Float32bits(float32(f.SampleAGC)))
	off += 4
	p[off] = f.SamplePeak
	off += 2
	copy(p[off:], f.Bands[:])
	off += NumBands + 2
	le.PutUint32(p[off:], math.Float32bits(float32(f.FFTMagnitude)))
	off += 4
	le.PutUint32(p[off:], math.Float32bits(float32(f.FFTMajorPeak)))
	return p
}
