// Package audio inspects MP3 payloads returned by the synthesis backends.
package audio

// MPEG audio frame tables, Layer III only. The synthesis backends emit
// nothing else.
var (
	bitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	bitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}

	sampleRatesV1  = [4]int{44100, 48000, 32000, 0}
	sampleRatesV2  = [4]int{22050, 24000, 16000, 0}
	sampleRatesV25 = [4]int{11025, 12000, 8000, 0}
)

// Duration estimates the playback length of an MP3 payload in seconds by
// walking its frame headers. Unreadable or empty input reports 0 rather
// than an error; a missing duration is cosmetic in the manifest.
func Duration(data []byte) float64 {
	offset := skipID3(data)
	var seconds float64
	frames := 0

	for offset+4 <= len(data) {
		frameLen, frameSeconds, ok := parseFrame(data[offset:])
		if !ok {
			// Resync on the next byte; encoders pad with junk between tags
			// and the first frame.
			if frames == 0 {
				offset++
				continue
			}
			break
		}
		seconds += frameSeconds
		frames++
		offset += frameLen
	}

	if frames == 0 {
		return 0
	}
	return seconds
}

// skipID3 returns the offset just past an ID3v2 tag, or 0.
func skipID3(data []byte) int {
	if len(data) < 10 || data[0] != 'I' || data[1] != 'D' || data[2] != '3' {
		return 0
	}
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	end := 10 + size
	if end > len(data) {
		return 0
	}
	return end
}

func parseFrame(data []byte) (frameLen int, seconds float64, ok bool) {
	if len(data) < 4 {
		return 0, 0, false
	}
	if data[0] != 0xFF || data[1]&0xE0 != 0xE0 {
		return 0, 0, false
	}

	version := (data[1] >> 3) & 0x03 // 0=2.5, 2=2, 3=1
	layer := (data[1] >> 1) & 0x03   // 1=III
	if version == 1 || layer != 1 {
		return 0, 0, false
	}

	bitrateIndex := (data[2] >> 4) & 0x0F
	sampleRateIndex := (data[2] >> 2) & 0x03
	padding := int((data[2] >> 1) & 0x01)

	var bitrate, sampleRate, samplesPerFrame int
	switch version {
	case 3: // MPEG 1
		bitrate = bitratesV1[bitrateIndex] * 1000
		sampleRate = sampleRatesV1[sampleRateIndex]
		samplesPerFrame = 1152
	case 2: // MPEG 2
		bitrate = bitratesV2[bitrateIndex] * 1000
		sampleRate = sampleRatesV2[sampleRateIndex]
		samplesPerFrame = 576
	default: // MPEG 2.5
		bitrate = bitratesV2[bitrateIndex] * 1000
		sampleRate = sampleRatesV25[sampleRateIndex]
		samplesPerFrame = 576
	}
	if bitrate == 0 || sampleRate == 0 {
		return 0, 0, false
	}

	frameLen = samplesPerFrame/8*bitrate/sampleRate + padding
	if frameLen < 4 {
		return 0, 0, false
	}
	return frameLen, float64(samplesPerFrame) / float64(sampleRate), true
}
