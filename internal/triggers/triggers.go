// Package triggers holds the language-handoff trigger vocabularies.
//
// Two distinct sets are maintained on purpose: the transcript-side list
// is matched against the intake platform's own (often degraded) ASR
// output, while the recording-side lists are matched against a clean,
// independently produced re-transcription of the call audio. They are
// different sizes and partially divergent content; do not merge them.
//
// Any component that generates agent configuration must import this
// package rather than carrying its own copy, so the two sides cannot
// drift silently.
package triggers

// Phrase is a watched keyword with its language group.
type Phrase struct {
	Keyword string
	Lang    string
}

// transcriptPhrases are matched case-insensitively as substrings of
// user turns in the intake transcript.
var transcriptPhrases = []string{
	"english",
	"englisch",
	"in english",
	"speak english",
	"can you speak english",
	"do you speak english",
	"i don't speak german",
	"français",
	"francais",
	"french",
	"en français",
	"je ne parle pas allemand",
	"parlez-vous français",
	"italiano",
	"in italiano",
	"italian",
	"parli italiano",
	"non parlo tedesco",
}

// recordingPhrases are matched against the secondary word-level
// re-transcription. Broader than the transcript list: the secondary
// source hears actual speech, so everyday vocabulary is a usable signal.
var recordingPhrases = map[string][]string{
	"en": {
		"english",
		"englisch",
		"hello",
		"hi there",
		"please",
		"sorry",
		"help",
		"water",
		"leak",
		"bathroom",
		"kitchen",
		"toilet",
		"emergency",
		"pipe",
		"broken",
		"i have",
		"can you",
		"do you",
		"speak english",
		"don't speak german",
		"excuse me",
	},
	"fr": {
		"français",
		"francais",
		"french",
		"bonjour",
		"bonsoir",
		"s'il vous plaît",
		"aide",
		"aidez",
		"j'ai",
		"fuite",
		"salle de bain",
		"cuisine",
		"toilettes",
		"urgence",
		"tuyau",
		"excusez",
		"je ne parle pas",
		"parlez-vous",
		"oui",
	},
	"it": {
		"italiano",
		"italian",
		"buongiorno",
		"buonasera",
		"aiuto",
		"ho un",
		"perdita",
		"bagno",
		"cucina",
		"emergenza",
		"tubo",
		"scusi",
		"non parlo tedesco",
	},
}

// TranscriptPhrases returns the transcript-side trigger list.
func TranscriptPhrases() []string {
	out := make([]string, len(transcriptPhrases))
	copy(out, transcriptPhrases)
	return out
}

// RecordingPhrases returns the recording-side vocabulary keyed by language.
func RecordingPhrases() map[string][]string {
	out := make(map[string][]string, len(recordingPhrases))
	for lang, kws := range recordingPhrases {
		cp := make([]string, len(kws))
		copy(cp, kws)
		out[lang] = cp
	}
	return out
}

// RecordingPhraseList returns the recording-side vocabulary flattened
// for scanning, in stable language order (en, fr, it).
func RecordingPhraseList() []Phrase {
	var out []Phrase
	for _, lang := range []string{"en", "fr", "it"} {
		for _, kw := range recordingPhrases[lang] {
			out = append(out, Phrase{Keyword: kw, Lang: lang})
		}
	}
	return out
}
