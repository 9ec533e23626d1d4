package analysis

import "strings"

// intentRule couples a keyword set with the intent it selects
type intentRule struct {
	keywords []string
	intent   Intent
}

// intentRules is ordered: the first rule with a matching keyword wins,
// so a command mentioning both "face" and "detect" routes to face recognition.
var intentRules = []intentRule{
	{keywords: []string{"face", "person"}, intent: IntentFaceRecognition},
	{keywords: []string{"object", "detect"}, intent: IntentObjectDetection},
	{keywords: []string{"medicine", "text", "read"}, intent: IntentTextExtraction},
	{keywords: []string{"emotion", "mood", "feeling"}, intent: IntentEmotionAnalysis},
}

// DefaultIntent is returned when no keyword matches.
const DefaultIntent = IntentFaceRecognition

// Classify maps a raw command to an Intent. Case-insensitive substring
// matching; total — every input produces an Intent, there is no error path.
func Classify(command string) Intent {
	lower := strings.ToLower(command)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.intent
			}
		}
	}
	return DefaultIntent
}
