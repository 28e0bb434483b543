package audio

import (
	"bytes"
	"encoding/binary"
	"math"
)

const (
	minPacketLen = 3

	eqHeaderLen = 3
	eqRawBands  = 32
	eqPacketLen = eqHeaderLen + eqRawBands

	wledHeaderLen   = 6
	wledV1PacketLen = 83
	wledV2PacketLen = 44

	eqBeatThreshold = 150
	eqBassBands     = 5
	eqMajorPeak     = 120.0
)

var (
	eqTag     = []byte("EQ")
	wledV1Tag = []byte("00001")
	wledV2Tag = []byte("00002")
)

// Decode parses one datagram. It reports false for anything that is too
// short, carries an unrecognized tag or does not match the protocol policy.
func Decode(p []byte, proto Protocol) (Frame, bool) {
	if len(p) < minPacketLen {
		return Frame{}, false
	}
	switch proto {
	case ProtocolEQStreamer:
		return decodeEQStreamer(p)
	case ProtocolWLED:
		return decodeWLED(p)
	default:
		if bytes.HasPrefix(p, eqTag) {
			return decodeEQStreamer(p)
		}
		return decodeWLED(p)
	}
}

func decodeWLED(p []byte) (Frame, bool) {
	if len(p) < wledHeaderLen {
		return Frame{}, false
	}
	switch {
	case bytes.Equal(p[:5], wledV2Tag):
		return decodeWLEDv2(p)
	case bytes.Equal(p[:5], wledV1Tag):
		return decodeWLEDv1(p)
	}
	return Frame{}, false
}

func decodeEQStreamer(p []byte) (Frame, bool) {
	if len(p) < eqPacketLen || !bytes.HasPrefix(p, eqTag) {
		return Frame{}, false
	}
	raw := p[eqHeaderLen:eqPacketLen]

	f := Frame{
		Source:       SourceEQStreamer,
		Version:      p[2],
		Bands:        reduceBands(raw),
		FFTMajorPeak: eqMajorPeak,
		MultAGC:      1.0,
	}

	var sum, peak int
	for _, b := range raw {
		sum += int(b)
		peak = max(peak, int(b))
	}
	mean := float64(sum) / float64(len(raw))
	f.SampleRaw = float64(int(mean))
	f.SampleAGC = float64(int(mean))
	f.SampleAvg = mean
	f.FFTMagnitude = float64(peak)

	var bass int
	for _, b := range raw[:eqBassBands] {
		bass += int(b)
	}
	if float64(bass)/eqBassBands > eqBeatThreshold {
		f.SamplePeak = 2
	}
	return f, true
}

// reduceBands folds raw bands pairwise with a floor average. An unpaired
// trailing value is copied and the result is zero-padded to NumBands.
func reduceBands(raw []byte) [NumBands]uint8 {
	var out [NumBands]uint8
	n := min(len(raw), 2*NumBands)
	for i, j := 0, 0; i < n; i, j = i+2, j+1 {
		if i+1 < n {
			out[j] = uint8((int(raw[i]) + int(raw[i+1])) / 2)
		} else {
			out[j] = raw[i]
		}
	}
	return out
}

func decodeWLEDv1(p []byte) (Frame, bool) {
	if len(p) < wledV1PacketLen {
		return Frame{}, false
	}
	le := binary.LittleEndian
	off := wledHeaderLen + 32

	f := Frame{Source: SourceWLEDv1, MultAGC: 1.0}
	f.SampleAGC = float64(int32(le.Uint32(p[off:])))
	off += 4
	f.SampleRaw = float64(int32(le.Uint32(p[off:])))
	off += 4
	f.SampleAvg = float64(math.Float32frombits(le.Uint32(p[off:])))
	off += 4
	f.SamplePeak = p[off]
	off++
	copy(f.Bands[:], p[off:off+NumBands])
	off += NumBands
	f.FFTMagnitude = math.Float64frombits(le.Uint64(p[off:]))
	off += 8
	f.FFTMajorPeak = math.Float64frombits(le.Uint64(p[off:]))
	return f, true
}

func decodeWLEDv2(p []byte) (Frame, bool) {
	if len(p) < wledV2PacketLen {
		return Frame{}, false
	}
	le := binary.LittleEndian
	off := wledHeaderLen + 2

	f := Frame{Source: SourceWLEDv2, MultAGC: 1.0}
	f.SampleRaw = float64(math.Float32frombits(le.Uint32(p[off:])))
	off += 4
	smooth := float64(math.Float32frombits(le.Uint32(p[off:])))
	f.SampleAGC = smooth
	f.SampleAvg = smooth
	off += 4
	f.SamplePeak = p[off]
	off += 2
	copy(f.Bands[:], p[off:off+NumBands])
	off += NumBands + 2
	f.FFTMagnitude = float64(math.Float32frombits(le.Uint32(p[off:])))
	off += 4
	f.FFTMajorPeak = float64(math.Float32frombits(le.Uint32(p[off:])))
	return f, true
}
