package commands

import "strings"

// Strategy is one layer of the matching cascade.
type Strategy interface {
	Name() string
	Match(utterance string) (Command, bool)
}

// Match is a recognized command together with the strategy that produced it.
type Match struct {
	Command  Command
	Strategy string
}

// Matcher evaluates its strategies in order; the first match wins.
type Matcher struct {
	strategies []Strategy
}

// NewMatcher builds a matcher over the given strategies, or over
// DefaultStrategies when none are given.
func NewMatcher(strategies ...Strategy) *Matcher {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Matcher{strategies: strategies}
}

// DefaultStrategies returns the cascade in priority order: numeric/ordinal
// aliases, single-letter aliases, fuzzy distance, known mis-transcriptions,
// then the catch-all "all" phrases.
func DefaultStrategies() []Strategy {
	return []Strategy{
		AliasStrategy(),
		LetterStrategy(),
		FuzzyStrategy(DefaultMaxDistance),
		PhraseStrategy(),
		AllStrategy(),
	}
}

// Match runs the cascade against an utterance. The second result is false
// when nothing matched, which is not an error.
func (m *Matcher) Match(utterance string) (Match, bool) {
	normalized := Normalize(utterance)
	if normalized == "" {
		return Match{}, false
	}

	for _, strategy := range m.strategies {
		if command, ok := strategy.Match(normalized); ok {
			return Match{Command: command, Strategy: strategy.Name()}, true
		}
	}
	return Match{}, false
}

// Normalize lowercases an utterance, drops the punctuation transcription
// services add and collapses whitespace.
func Normalize(utterance string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '!', '?', ';', ':', '"':
			return ' '
		}
		return r
	}, strings.ToLower(utterance))

	return strings.Join(strings.Fields(cleaned), " ")
}
