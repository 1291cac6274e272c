package audit

import (
	"math"
	"regexp"
	"strings"
)

// GibberishConfig groups the scoring thresholds so they stay auditable
// and testable independent of the scoring algorithm.
type GibberishConfig struct {
	ShortRatioHigh float64 // short-token ratio worth 2 points
	ShortRatioLow  float64 // short-token ratio worth 1 point
	NoVowelHigh    float64 // vowelless long-token ratio worth 2 points
	NoVowelLow     float64 // vowelless long-token ratio worth 1 point
	StutterUnique  float64 // distinct/total token ratio at or below which stutter counts
	MidCapRatio    float64 // capitalized mid-sentence token ratio above which it counts
	CriticalScore  float64 // score at or above which the finding is critical
	WarningScore   float64 // score at or above which the finding is a warning
}

// DefaultGibberishConfig returns the production thresholds.
func DefaultGibberishConfig() GibberishConfig {
	return GibberishConfig{
		ShortRatioHigh: 0.5,
		ShortRatioLow:  0.3,
		NoVowelHigh:    0.3,
		NoVowelLow:     0.15,
		StutterUnique:  0.4,
		MidCapRatio:    0.5,
		CriticalScore:  0.6,
		WarningScore:   0.4,
	}
}

var (
	vowelPattern     = regexp.MustCompile(`(?i)[aeiouyäöü]`)
	consonantRun     = regexp.MustCompile(`(?i)[bcdfghjklmnpqrstvwxyz]{4,}`)
	leadingUpper     = regexp.MustCompile(`^[A-ZÄÖÜ]`)
	capitalAllowlist = regexp.MustCompile(`^(Ich|Sie|Herr|Frau|PLZ|AG)`)
	punctStripper    = strings.NewReplacer(".", "", ",", "", "!", "", "?", "")
)

// GibberishScore estimates how likely a transcribed turn is ASR noise
// rather than real speech: 0.0 is clean, 1.0 is full gibberish. Token
// pattern based, not a dictionary lookup. Turns of two or fewer tokens
// are too short to judge and always score 0.
//
// Five independent signals contribute points, normalized by the maximum:
// short-token proportion, vowelless long tokens, four-plus consonant
// runs, repeated-fragment stutter, and mid-sentence capitalization.
func GibberishScore(text string, cfg GibberishConfig) float64 {
	tokens := strings.Fields(text)
	if len(tokens) <= 2 {
		return 0
	}

	signals := 0
	maxSignals := 0

	// Signal 1: proportion of very short tokens (1-2 chars)
	shortCount := 0
	for _, t := range tokens {
		if len([]rune(punctStripper.Replace(t))) <= 2 {
			shortCount++
		}
	}
	shortRatio := float64(shortCount) / float64(len(tokens))
	if shortRatio > cfg.ShortRatioHigh {
		signals += 2
	} else if shortRatio > cfg.ShortRatioLow {
		signals++
	}
	maxSignals += 2

	// Signal 2: long tokens with no vowels
	var longTokens []string
	for _, t := range tokens {
		if len([]rune(punctStripper.Replace(t))) > 2 {
			longTokens = append(longTokens, t)
		}
	}
	if len(longTokens) > 0 {
		noVowel := 0
		for _, t := range longTokens {
			if !vowelPattern.MatchString(t) {
				noVowel++
			}
		}
		ratio := float64(noVowel) / float64(len(longTokens))
		if ratio > cfg.NoVowelHigh {
			signals += 2
		} else if ratio > cfg.NoVowelLow {
			signals++
		}
	}
	maxSignals += 2

	// Signal 3: four or more consecutive consonants within a token
	for _, t := range tokens {
		if consonantRun.MatchString(t) {
			signals++
			break
		}
	}
	maxSignals++

	// Signal 4: repeated fragments (ASR stutter: "ja ja ja", "hm hm hm")
	unique := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		unique[strings.ToLower(punctStripper.Replace(t))] = struct{}{}
	}
	if len(tokens) >= 4 && float64(len(unique)) <= float64(len(tokens))*cfg.StutterUnique {
		signals++
	}
	maxSignals++

	// Signal 5: unusual capitalization mid-sentence
	mid := tokens[1:]
	capCount := 0
	for _, t := range mid {
		if leadingUpper.MatchString(t) && !capitalAllowlist.MatchString(t) {
			capCount++
		}
	}
	if len(mid) > 0 && float64(capCount)/float64(len(mid)) > cfg.MidCapRatio {
		signals++
	}
	maxSignals++

	return math.Min(1.0, float64(signals)/float64(maxSignals))
}
