package commands

import "strings"

// DefaultMaxDistance is the largest edit distance the fuzzy strategy accepts.
const DefaultMaxDistance = 3

type alias struct {
	text      string
	component Component
}

var numericAliases = []alias{
	{"1", Bone}, {"2", Brain}, {"3", Skin}, {"4", SoftTissue},
	{"5", Temporalis}, {"6", Tumers}, {"7", Venous}, {"8", Ventricles},
	{"first", Bone}, {"second", Brain}, {"third", Skin}, {"fourth", SoftTissue},
	{"fifth", Temporalis}, {"sixth", Tumers}, {"seventh", Venous}, {"eighth", Ventricles},
}

var letterAliases = []alias{
	{"b", Bone}, {"be", Bone}, {"bee", Bone},
	{"s", Skin}, {"es", Skin}, {"ess", Skin},
	{"t", Temporalis}, {"tea", Temporalis},
	{"v", Venous}, {"vee", Venous}, {"we", Venous},
}

var misTranscriptions = []struct {
	phrases   []string
	component Component
}{
	{[]string{"bone", "phone", "blown", "bown", "bones"}, Bone},
	{[]string{"brain", "brane", "brains"}, Brain},
	{[]string{"skin", "screen", "scan", "skins", "scans"}, Skin},
	{[]string{"soft tissue", "soft tissues", "soft", "sauce tissue", "softer shoe"}, SoftTissue},
	{[]string{"temporalis", "temporal", "temporary", "tempura"}, Temporalis},
	{[]string{"tumors", "tumor", "tumers", "tumer", "rumors", "tremors"}, Tumers},
	{[]string{"venous", "venus", "venis", "veinous", "veins"}, Venous},
	{[]string{"ventricles", "ventricle", "ventrical", "ventriculs"}, Ventricles},
}

var allPhrases = []string{"all", "everything", "all components", "all parts", "hall", "fall"}

type strategyFunc struct {
	name  string
	match func(utterance string) (Command, bool)
}

func (s strategyFunc) Name() string                           { return s.name }
func (s strategyFunc) Match(utterance string) (Command, bool) { return s.match(utterance) }

// AliasStrategy matches "<verb> [number] <alias>" for numeric and ordinal
// aliases, e.g. "show number 3" or "hide first".
func AliasStrategy() Strategy {
	return strategyFunc{name: "alias", match: func(utterance string) (Command, bool) {
		for _, alias := range numericAliases {
			for _, action := range phraseActions {
				if strings.Contains(utterance, action.verb+" "+alias.text) ||
					strings.Contains(utterance, action.verb+" number "+alias.text) {
					return Command{Type: action.commandType, Target: alias.component}, true
				}
			}
		}
		return Command{}, false
	}}
}

// LetterStrategy matches "enable <letter>" or "show <letter>" where the
// letter is followed by another word or ends the utterance.
func LetterStrategy() Strategy {
	return strategyFunc{name: "letter", match: func(utterance string) (Command, bool) {
		for _, alias := range letterAliases {
			for _, action := range letterActions {
				pattern := action.verb + " " + alias.text
				if strings.Contains(utterance, pattern+" ") || strings.HasSuffix(utterance, pattern) {
					return Command{Type: action.commandType, Target: alias.component}, true
				}
			}
		}
		return Command{}, false
	}}
}

// FuzzyStrategy takes the first action verb and treats the rest of the
// utterance as the target name. The closest catalog name within maxDistance
// wins; ties go to the earlier catalog entry.
func FuzzyStrategy(maxDistance int) Strategy {
	return strategyFunc{name: "fuzzy", match: func(utterance string) (Command, bool) {
		commandType, target, ok := extractActionAndTarget(utterance)
		if !ok {
			return Command{}, false
		}

		best, ok := closestComponent(target, maxDistance)
		if !ok {
			return Command{}, false
		}
		return Command{Type: commandType, Target: best}, true
	}}
}

// PhraseStrategy matches verb+phrase against a fixed table of known
// mis-transcriptions of each component name.
func PhraseStrategy() Strategy {
	return strategyFunc{name: "phrase", match: func(utterance string) (Command, bool) {
		for _, entry := range misTranscriptions {
			for _, phrase := range entry.phrases {
				for _, action := range phraseActions {
					if strings.Contains(utterance, action.verb+" "+phrase) {
						return Command{Type: action.commandType, Target: entry.component}, true
					}
				}
			}
		}
		return Command{}, false
	}}
}

// AllStrategy enables or disables every component. Toggle is not supported
// for the whole catalog.
func AllStrategy() Strategy {
	return strategyFunc{name: "all", match: func(utterance string) (Command, bool) {
		for _, phrase := range allPhrases {
			for _, action := range phraseActions {
				if action.commandType == Toggle {
					continue
				}
				if strings.Contains(utterance, action.verb+" "+phrase) {
					return Command{Type: action.commandType, Target: All}, true
				}
			}
		}
		return Command{}, false
	}}
}

func extractActionAndTarget(utterance string) (CommandType, string, bool) {
	for _, action := range actions {
		index := strings.Index(utterance, action.verb+" ")
		if index < 0 {
			continue
		}

		target := strings.TrimSpace(utterance[index+len(action.verb)+1:])
		if target == "" {
			return 0, "", false
		}
		return action.commandType, target, true
	}
	return 0, "", false
}

func closestComponent(target string, maxDistance int) (Component, bool) {
	target = strings.ToLower(target)

	best := NoComponent
	bestDistance := maxDistance + 1
	for _, component := range catalog {
		distance := Levenshtein(target, strings.ToLower(component.String()))
		if distance < bestDistance {
			best = component
			bestDistance = distance
		}
	}
	return best, best != NoComponent
}
