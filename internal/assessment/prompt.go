package assessment

import (
	"strings"

	"github.com/jonathan/footwear-triage/internal/prompts"
)

const (
	promptFile = "assessment.json"
	promptKey  = "assess-item"

	defaultTargetLabel = "sneaker"
)

// Hints are optional caller-supplied facts about the item.
type Hints struct {
	Brand string
	Model string
}

// BuildPrompt renders the instruction prompt for one item. targetLabel is the
// cascade's stage-1 target class; empty means "sneaker". The output depends
// only on the arguments.
func BuildPrompt(targetLabel string, isTarget bool, hints Hints, defects []string) string {
	label := strings.TrimSpace(targetLabel)
	if label == "" {
		label = defaultTargetLabel
	}
	typeKey := "type-other"
	if isTarget {
		typeKey = "type-target"
	}

	return prompts.Format(prompts.MustGet(promptFile, promptKey), map[string]string{
		"Type":    prompts.Format(prompts.MustGet(promptFile, typeKey), map[string]string{"Label": label}),
		"Brand":   orUnknown(hints.Brand),
		"Model":   orUnknown(hints.Model),
		"Defects": joinDefects(defects),
	})
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}

func joinDefects(defects []string) string {
	if len(defects) == 0 {
		return "none"
	}
	return strings.Join(defects, ", ")
}
