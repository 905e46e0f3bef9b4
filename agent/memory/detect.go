package memory

import (
	"context"
	"strings"
)

// Extractor detects durable facts in a user message. Treated the same way as
// routing classification: a black-box step with a deterministic consumer.
type Extractor interface {
	Extract(ctx context.Context, userMessage string) ([]Fact, error)
}

// KeywordExtractor recognizes explicit statements via trigger phrases. It
// errs on the side of missing facts; anything subtler belongs to a
// model-backed extractor.
type KeywordExtractor struct{}

type profileTrigger struct {
	phrase string
	key    string
}

var profileTriggers = []profileTrigger{
	{"my name is ", "name"},
	{"i work as ", "occupation"},
	{"i am from ", "location"},
	{"i'm from ", "location"},
	{"my timezone is ", "timezone"},
}

var preferenceTriggers = []string{
	"i prefer ",
	"i like ",
	"i love ",
	"i don't like ",
	"i hate ",
}

var instructionTriggers = []string{
	"always ",
	"never ",
}

func (KeywordExtractor) Extract(_ context.Context, userMessage string) ([]Fact, error) {
	lower := strings.ToLower(userMessage)
	var facts []Fact

	for _, trig := range profileTriggers {
		if value := clauseAfter(lower, userMessage, trig.phrase); value != "" {
			facts = append(facts, Fact{Section: SectionProfile, Key: trig.key, Value: value})
		}
	}

	for _, phrase := range preferenceTriggers {
		if value := clauseAfter(lower, userMessage, phrase); value != "" {
			facts = append(facts, Fact{
				Section: SectionPreferences,
				Key:     slug(value),
				Value:   strings.TrimSpace(phrase) + " " + value,
			})
		}
	}

	for _, phrase := range instructionTriggers {
		if !strings.HasPrefix(lower, phrase) {
			continue
		}
		if value := clauseAfter(lower, userMessage, phrase); value != "" {
			facts = append(facts, Fact{
				Section: SectionInstructions,
				Key:     slug(value),
				Value:   strings.TrimSpace(phrase) + " " + value,
			})
		}
	}

	return facts, nil
}

// clauseAfter returns the original-case text following the first occurrence of
// phrase, cut at the next sentence boundary.
func clauseAfter(lower, original, phrase string) string {
	idx := strings.Index(lower, phrase)
	if idx < 0 {
		return ""
	}
	rest := original[idx+len(phrase):]
	if end := strings.IndexAny(rest, ".!?\n;,"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// slug derives a stable key from the leading words of a clause so restating
// the same preference overwrites instead of duplicating.
func slug(clause string) string {
	words := strings.Fields(strings.ToLower(clause))
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, "_")
}
