package audio_test

import (
	"bytes"
	"math"
	"testing"

	"bookcast/internal/audio"
)

// 128 kbps, 44.1 kHz, MPEG 1 Layer III, no padding: 417-byte frames of
// 1152/44100 seconds each.
func mp3Frames(count int) []byte {
	const frameLen = 417
	frame := make([]byte, frameLen)
	frame[0] = 0xFF
	frame[1] = 0xFB
	frame[2] = 0x90
	var buf bytes.Buffer
	for i := 0; i < count; i++ {
		buf.Write(frame)
	}
	return buf.Bytes()
}

func TestDurationCountsFrames(t *testing.T) {
	data := mp3Frames(40)
	got := audio.Duration(data)
	want := 40.0 * 1152.0 / 44100.0
	if math.Abs(got-want) > 0.001 {
		t.Fatalf("Duration = %f, want %f", got, want)
	}
}

func TestDurationSkipsID3Tag(t *testing.T) {
	tag := make([]byte, 10+100)
	copy(tag, "ID3")
	tag[6], tag[7], tag[8], tag[9] = 0, 0, 0, 100

	data := append(tag, mp3Frames(10)...)
	got := audio.Duration(data)
	want := 10.0 * 1152.0 / 44100.0
	if math.Abs(got-want) > 0.001 {
		t.Fatalf("Duration = %f, want %f", got, want)
	}
}

func TestDurationZeroOnGarbage(t *testing.T) {
	if got := audio.Duration(nil); got != 0 {
		t.Fatalf("Duration(nil) = %f", got)
	}
	if got := audio.Duration([]byte("definitely not audio")); got != 0 {
		t.Fatalf("Duration(garbage) = %f", got)
	}
}
