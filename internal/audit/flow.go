package audit

import (
	"fmt"
	"regexp"
	"strings"
)

// FlowConfig groups the conversational-flow thresholds.
type FlowConfig struct {
	ExpressMinFields  int // field signals in the first user turn that count as express disclosure
	MaxAgentQuestions int // agent questions tolerated after an express disclosure
}

// DefaultFlowConfig returns the production thresholds.
func DefaultFlowConfig() FlowConfig {
	return FlowConfig{ExpressMinFields: 3, MaxAgentQuestions: 3}
}

// trackedField pairs a user-side value pattern with the agent-side
// question phrases for one intake field.
type trackedField struct {
	name          string
	agentPhrases  []string
	userValue     *regexp.Regexp
}

var flowFields = []trackedField{
	{
		name:         "plz",
		agentPhrases: []string{"postleitzahl", "plz"},
		userValue:    regexp.MustCompile(`\b\d{4}\b`),
	},
	{
		name:         "urgency",
		agentPhrases: []string{"dringlichkeit", "notfall", "dringend", "normal eingeplant"},
		userValue:    regexp.MustCompile(`(?i)\b(notfall|dringend|normal|emergency|urgent)\b`),
	},
	{
		name:         "category",
		agentPhrases: []string{"handelt es sich", "verstopfung", "leck oder"},
		userValue:    regexp.MustCompile(`(?i)\b(verstopf|leck|heizung|boiler|rohrbruch|sanitär|water|leak|heat|blockage|clog)\b`),
	},
}

// First-turn field signal patterns for the express disclosure check.
var (
	expressPLZ      = regexp.MustCompile(`\b\d{4}\b`)
	expressCategory = regexp.MustCompile(`(?i)\b(verstopf|leck|heizung|boiler|rohrbruch|sanitär|water|leak|heat)\b`)
	expressUrgency  = regexp.MustCompile(`(?i)\b(notfall|dringend|normal|emergency|urgent)\b`)
	expressStreet   = regexp.MustCompile(`(?i)\b(strasse|gasse|weg|platz|str\.)\b`)
)

// checkFlow detects two conversational defects: the agent re-asking a
// field the caller already supplied, and the agent running the full
// questionnaire after the caller disclosed most fields up front.
func (a *Auditor) checkFlow(turns []Turn) []Finding {
	var findings []Finding

	for _, fk := range flowFields {
		userAnsweredAt := -1
		agentAskedAfterAt := -1

		for i, t := range turns {
			if t.Role == "user" && userAnsweredAt == -1 && fk.userValue.MatchString(t.Content) {
				userAnsweredAt = i
			}
			if t.Role == "agent" && userAnsweredAt >= 0 && i > userAnsweredAt {
				lower := strings.ToLower(t.Content)
				for _, p := range fk.agentPhrases {
					if strings.Contains(lower, p) {
						agentAskedAfterAt = i
						break
					}
				}
				if agentAskedAfterAt >= 0 {
					break
				}
			}
		}

		if agentAskedAfterAt > 0 {
			findings = append(findings, NewFinding(
				CategoryDoubleQuestion,
				SeverityWarning,
				fmt.Sprintf("Agent re-asked '%s' in turn %d (user answered in turn %d)", fk.name, agentAskedAfterAt+1, userAnsweredAt+1),
				fmt.Sprintf("User provided %s-related info in turn %d, but agent asked again in turn %d.", fk.name, userAnsweredAt+1, agentAskedAfterAt+1),
				fmtClock(turns[agentAskedAfterAt].StartMs),
				map[string]any{
					"field":      fk.name,
					"user_turn":  userAnsweredAt + 1,
					"agent_turn": agentAskedAfterAt + 1,
				},
			))
		}
	}

	// Express disclosure: 3+ field signals in the first user turn.
	var firstUser *Turn
	for i := range turns {
		if turns[i].Role == "user" {
			firstUser = &turns[i]
			break
		}
	}
	if firstUser != nil {
		fields := 0
		for _, p := range []*regexp.Regexp{expressPLZ, expressCategory, expressUrgency, expressStreet} {
			if p.MatchString(firstUser.Content) {
				fields++
			}
		}
		if fields >= a.config.Flow.ExpressMinFields {
			agentQuestions := 0
			for _, t := range turns {
				if t.Role == "agent" && strings.Contains(t.Content, "?") {
					agentQuestions++
				}
			}
			if agentQuestions > a.config.Flow.MaxAgentQuestions {
				findings = append(findings, NewFinding(
					CategoryExpressIgnored,
					SeverityWarning,
					fmt.Sprintf("User provided %d fields in first turn but agent asked %d questions", fields, agentQuestions),
					"Caller gave substantial info upfront. Agent could have confirmed + filled gaps instead of full questionnaire.",
					fmtClock(firstUser.StartMs),
					map[string]any{
						"fields_in_first_turn": fields,
						"agent_questions":      agentQuestions,
					},
				))
			}
		}
	}

	return findings
}
