package usecase

import (
	"strings"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
)

// routeDecision is the router output: the visual mode to use for the request
// and the evidence that produced it.
type routeDecision struct {
	Mode    domain.VisualMode
	Reason  string
	Matched []string
}

type visualCategory string

const (
	categoryColor  visualCategory = "color"
	categoryObject visualCategory = "object"
	categoryAction visualCategory = "action"
)

// speechKeywords marks dialogue intent. Any hit routes the query away from
// the visual channel: dialogue queries rarely benefit from appearance
// similarity, so speech takes precedence over visual matches.
var speechKeywords = map[string]struct{}{
	"say": {}, "says": {}, "said": {}, "saying": {},
	"quote": {}, "quotes": {}, "quoted": {},
	"dialogue": {}, "dialog": {},
	"mention": {}, "mentions": {}, "mentioned": {},
	"talk": {}, "talks": {}, "talking": {},
	"speak": {}, "speaks": {}, "speaking": {}, "spoken": {},
	"ask": {}, "asks": {}, "asked": {},
	"tell": {}, "tells": {}, "told": {},
	"conversation": {}, "speech": {}, "narration": {}, "voiceover": {},
}

// visualKeywords maps appearance vocabulary to its sub-category. The table is
// data, not control flow; the routing rule stays a short function over
// lookups.
var visualKeywords = map[string]visualCategory{
	// colors
	"red": categoryColor, "blue": categoryColor, "green": categoryColor,
	"yellow": categoryColor, "black": categoryColor, "white": categoryColor,
	"orange": categoryColor, "purple": categoryColor, "pink": categoryColor,
	"brown": categoryColor, "gray": categoryColor, "grey": categoryColor,
	"golden": categoryColor, "silver": categoryColor,

	// concrete objects
	"car": categoryObject, "truck": categoryObject, "bus": categoryObject,
	"bicycle": categoryObject, "motorcycle": categoryObject,
	"dog": categoryObject, "cat": categoryObject, "bird": categoryObject,
	"horse": categoryObject,
	"person": categoryObject, "man": categoryObject, "woman": categoryObject,
	"child": categoryObject, "crowd": categoryObject,
	"tree": categoryObject, "flower": categoryObject, "mountain": categoryObject,
	"beach": categoryObject, "ocean": categoryObject, "river": categoryObject,
	"sky": categoryObject, "cloud": categoryObject, "snow": categoryObject,
	"rain": categoryObject, "fire": categoryObject, "sunset": categoryObject,
	"building": categoryObject, "house": categoryObject, "bridge": categoryObject,
	"street": categoryObject, "road": categoryObject, "window": categoryObject,
	"door": categoryObject, "table": categoryObject, "chair": categoryObject,
	"phone": categoryObject, "computer": categoryObject, "screen": categoryObject,
	"book": categoryObject, "guitar": categoryObject,
	"hat": categoryObject, "glasses": categoryObject, "dress": categoryObject,
	"shirt": categoryObject, "uniform": categoryObject,

	// physical actions
	"walking": categoryAction, "running": categoryAction, "jumping": categoryAction,
	"dancing": categoryAction, "swimming": categoryAction, "climbing": categoryAction,
	"driving": categoryAction, "riding": categoryAction, "flying": categoryAction,
	"eating": categoryAction, "drinking": categoryAction, "cooking": categoryAction,
	"sitting": categoryAction, "standing": categoryAction, "sleeping": categoryAction,
	"smiling": categoryAction, "crying": categoryAction, "laughing": categoryAction,
	"hugging": categoryAction, "kissing": categoryAction, "waving": categoryAction,
	"fighting": categoryAction, "playing": categoryAction,
}

// routeVisualIntent classifies a query into a visual mode. A non-auto default
// bypasses classification. The function is total: any input maps to a valid
// mode, with the empty query defaulting to skip.
func routeVisualIntent(queryText string, defaultMode domain.VisualMode) routeDecision {
	if defaultMode.Forced() {
		return routeDecision{Mode: defaultMode, Reason: "forced"}
	}

	tokens := splitAlphaNumLower(queryText)
	if len(tokens) == 0 {
		return routeDecision{Mode: domain.VisualModeSkip, Reason: "empty query"}
	}

	var speechMatched []string
	visualMatched := make([]string, 0, 4)
	categories := make(map[visualCategory]struct{}, 3)
	strongMatches := 0

	for _, token := range tokens {
		if _, ok := speechKeywords[token]; ok {
			speechMatched = append(speechMatched, token)
			continue
		}
		if category, ok := visualKeywords[token]; ok {
			visualMatched = append(visualMatched, token)
			categories[category] = struct{}{}
			if category == categoryObject || category == categoryAction {
				strongMatches++
			}
		}
	}

	// Speech intent wins regardless of visual matches.
	if len(speechMatched) > 0 {
		return routeDecision{
			Mode:    domain.VisualModeSkip,
			Reason:  speechMatched[0],
			Matched: speechMatched,
		}
	}

	if len(visualMatched) == 0 {
		return routeDecision{Mode: domain.VisualModeRerank, Reason: "no visual intent"}
	}

	// Strong visual intent: hits in at least two distinct sub-categories, or
	// an object/action match that carries the query on its own (visual tokens
	// make up at least half of it). Everything weaker stays a rerank signal.
	strong := len(categories) >= 2 ||
		(strongMatches > 0 && len(visualMatched)*2 >= len(tokens))
	if strong {
		return routeDecision{
			Mode:    domain.VisualModeRecall,
			Reason:  strings.Join(visualMatched, ","),
			Matched: visualMatched,
		}
	}
	return routeDecision{
		Mode:    domain.VisualModeRerank,
		Reason:  strings.Join(visualMatched, ","),
		Matched: visualMatched,
	}
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
