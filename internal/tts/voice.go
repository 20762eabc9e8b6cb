package tts

import "unicode"

const mandarinVoice = "zh-CN-XiaoxiaoNeural"

// ideographicShare is the fraction of letters that must be Han runes before
// the text is treated as Chinese.
const ideographicShare = 0.3

// PickVoice chooses a voice for text when the caller gave no hint. Mostly
// ideographic text gets a Mandarin voice; everything else uses fallback.
func PickVoice(text, fallback string) string {
	var letters, han int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}
	if letters > 0 && float64(han)/float64(letters) >= ideographicShare {
		return mandarinVoice
	}
	return fallback
}
