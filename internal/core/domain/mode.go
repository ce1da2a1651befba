package domain

import "strings"

// VisualMode controls how the visual channel participates in a search request.
type VisualMode string

const (
	// VisualModeAuto lets the intent router pick recall, rerank or skip.
	VisualModeAuto VisualMode = "auto"
	// VisualModeRecall scores the visual channel directly during retrieval.
	VisualModeRecall VisualMode = "recall"
	// VisualModeRerank reorders the base-ranked pool with visual scores.
	VisualModeRerank VisualMode = "rerank"
	// VisualModeSkip excludes the visual channel entirely.
	VisualModeSkip VisualMode = "skip"
)

func ParseVisualMode(raw string) VisualMode {
	switch VisualMode(strings.ToLower(strings.TrimSpace(raw))) {
	case VisualModeRecall:
		return VisualModeRecall
	case VisualModeRerank:
		return VisualModeRerank
	case VisualModeSkip:
		return VisualModeSkip
	default:
		return VisualModeAuto
	}
}

// Forced reports whether the mode bypasses the intent router.
func (m VisualMode) Forced() bool {
	return m == VisualModeRecall || m == VisualModeRerank || m == VisualModeSkip
}
