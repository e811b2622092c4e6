package notice

import "strings"

type Tone string

const (
	ToneNeutral  Tone = "neutral"
	ToneFriendly Tone = "friendly"
	ToneFirm     Tone = "firm"
)

var tonePrefixes = map[Tone]string{
	ToneNeutral:  "Write the following administrative document in a formal and objective tone:",
	ToneFriendly: "Write the following administrative document in a warm and friendly tone:",
	ToneFirm:     "Write the following administrative document in a polite but firm tone:",
}

// ParseTone maps s onto a known tone, falling back to neutral.
func ParseTone(s string) Tone {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tonePrefixes[t]; ok {
		return t
	}
	return ToneNeutral
}

func (t Tone) Prefix() string {
	if p, ok := tonePrefixes[t]; ok {
		return p
	}
	return tonePrefixes[ToneNeutral]
}
