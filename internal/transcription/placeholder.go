package transcription

import (
	"fmt"
	"math"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/domain"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/audio"
)

// PlaceholderMarkers open every demo-mode text, one per language
var PlaceholderMarkers = map[string]string{
	domain.LanguageEnglish: "[DEMO MODE - API Key Required]",
	domain.LanguageMyanmar: "[သရုပ်ပြမုဒ် - API Key လိုအပ်သည်]",
}

const placeholderEnglish = `%s

📁 %s
💾 %d KB | ⏱️ ~%ds

🎯 For Myanmar transcription:

✅ **Groq** (FREE):
   - Works ✓
   - Sometimes mixes Thai characters
   - Speak clearly for best results

💎 **OpenAI** ($0.006/min):
   - Best accuracy ✓
   - Perfect Myanmar script ✓
   - Get key at: platform.openai.com

💡 Tip: Use OpenAI for Myanmar ($5 = ~14 hours)`

const placeholderMyanmar = `%s

📁 %s
💾 %d KB | ⏱️ ~%d စက္ကန့်

🎯 မြန်မာဘာသာ မှတ်တမ်းတင်ရန်:

✅ **Groq** (အခမဲ့):
   - အလုပ်လုပ်သည် ✓
   - တခါတရံ ထိုင်းစာလုံးများ ရောနှောနိုင်သည်
   - ရှင်းလင်းစွာပြောဆိုပါ

💎 **OpenAI** ($0.006/မိနစ်):
   - အကောင်းဆုံး တိကျမှု ✓
   - မြန်မာစာလုံးများ ပြည့်စုံစွာ ရရှိမည်
   - platform.openai.com တွင် key ရယူပါ

💡 အကြံပြုချက်: OpenAI ကို အသုံးပြုပါ ($5 = ~14 နာရီ)`

// Placeholder renders the demo-mode text for a file no provider transcribed.
// The same inputs always produce the same text.
func Placeholder(fileName string, size int64, language string) string {
	sizeKB := int(math.Round(float64(size) / 1024))
	seconds := audio.EstimateSeconds(size)

	if language == domain.LanguageMyanmar {
		return fmt.Sprintf(placeholderMyanmar, PlaceholderMarkers[domain.LanguageMyanmar], fileName, sizeKB, seconds)
	}
	return fmt.Sprintf(placeholderEnglish, PlaceholderMarkers[domain.LanguageEnglish], fileName, sizeKB, seconds)
}
