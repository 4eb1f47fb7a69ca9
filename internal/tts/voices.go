package tts

// Voice identifies a voice offered in the studio voice picker.
type Voice string

// Voices backed directly by a prebuilt engine voice.
const (
	VoiceKore   Voice = "Kore"
	VoicePuck   Voice = "Puck"
	VoiceCharon Voice = "Charon"
	VoiceFenrir Voice = "Fenrir"
	VoiceZephyr Voice = "Zephyr"
)

// Marketplace voices that alias an engine voice.
const (
	VoiceAura  Voice = "Aura"
	VoiceLuna  Voice = "Luna"
	VoiceTerra Voice = "Terra"
	VoiceNova  Voice = "Nova"
	VoiceEos   Voice = "Eos"
)

// VoiceCustom is the sentinel for the user's cloned voice.
const VoiceCustom Voice = "CUSTOM"

// CustomVoiceDisplayName is shown instead of the CUSTOM sentinel.
const CustomVoiceDisplayName = "Vlastní hlas"

// DefaultVoice is selected on start and after the cloned voice is deleted.
const DefaultVoice = VoiceKore

// engineVoices maps every selectable voice to the prebuilt engine voice that renders it.
// The cloned voice is simulated, so it is rendered by a fixed engine voice.
var engineVoices = map[Voice]Voice{
	VoiceKore:   VoiceKore,
	VoicePuck:   VoicePuck,
	VoiceCharon: VoiceCharon,
	VoiceFenrir: VoiceFenrir,
	VoiceZephyr: VoiceZephyr,
	VoiceAura:   VoiceKore,
	VoiceLuna:   VoicePuck,
	VoiceTerra:  VoiceCharon,
	VoiceNova:   VoiceFenrir,
	VoiceEos:    VoiceZephyr,
	VoiceCustom: VoiceZephyr,
}

// Voices returns the voices in picker order, without the custom sentinel.
func Voices() []Voice {
	return []Voice{
		VoiceKore, VoicePuck, VoiceCharon, VoiceFenrir, VoiceZephyr,
		VoiceAura, VoiceLuna, VoiceTerra, VoiceNova, VoiceEos,
	}
}

// IsKnown reports whether v is a selectable voice, including CUSTOM.
func (v Voice) IsKnown() bool {
	_, ok := engineVoices[v]

	return ok
}

// EngineVoice returns the prebuilt engine voice for v. Unknown voices fall back to Kore.
func (v Voice) EngineVoice() Voice {
	engine, ok := engineVoices[v]
	if !ok {
		return DefaultVoice
	}

	return engine
}

// DisplayName returns the label shown for v.
func (v Voice) DisplayName() string {
	if v == VoiceCustom {
		return CustomVoiceDisplayName
	}

	return string(v)
}
