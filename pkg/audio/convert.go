package audio

// Mono downmixes p to a single channel by averaging the left and right
// samples of each stereo frame. Mono input is returned unchanged. Averaging
// uses int32 arithmetic and clamps to the int16 range.
func Mono(p PCM) PCM {
	if p.Channels <= 1 {
		return p
	}

	frames := len(p.Data) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		l := int32(int16(p.Data[i*4]) | int16(p.Data[i*4+1])<<8)
		r := int32(int16(p.Data[i*4+2]) | int16(p.Data[i*4+3])<<8)
		avg := (l + r) / 2
		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}
		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return PCM{Data: out, SampleRate: p.SampleRate, Channels: 1}
}

// Resample converts mono 16-bit PCM to dstRate using linear interpolation.
// When the source rate already matches, p is returned unchanged. The caller
// is responsible for downmixing first; stereo input is returned unchanged.
func Resample(p PCM, dstRate int) PCM {
	if p.Channels != 1 || dstRate <= 0 || p.SampleRate <= 0 || p.SampleRate == dstRate || len(p.Data) < 2 {
		return p
	}

	srcSamples := len(p.Data) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(p.SampleRate))
	if dstSamples == 0 {
		return PCM{Data: nil, SampleRate: dstRate, Channels: 1}
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(p.SampleRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(p.Data[srcIdx*2]) | int16(p.Data[srcIdx*2+1])<<8
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = int16(p.Data[(srcIdx+1)*2]) | int16(p.Data[(srcIdx+1)*2+1])<<8
		}

		v := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return PCM{Data: out, SampleRate: dstRate, Channels: 1}
}

// Int16sToBytes converts int16 PCM samples to interleaved little-endian
// bytes.
func Int16sToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
