package guard

import (
	"strings"

	"github.com/luminon/agentd/types"
)

// OverrideCategory is the fixed category tag carried by verdicts forced by
// the topic override. The refusal message for this tag is distinct from the
// generic blocked-categories text.
const OverrideCategory = "ConteúdoProibido"

// TopicOverride forces an unsafe verdict for messages that match a
// restricted-topic denylist without matching an exemption allowlist. It runs
// after the classifier and takes precedence over its result: the base
// taxonomy does not encode this business restriction.
type TopicOverride struct {
	// Denylist terms mark restricted topics, matched case-insensitively
	// as substrings of the latest human message.
	Denylist []string `yaml:"denylist"`
	// Allowlist terms exempt a message even when a denylist term matches.
	Allowlist []string `yaml:"allowlist"`
	// Category is the tag carried by forced verdicts. Defaults to
	// OverrideCategory.
	Category string `yaml:"category"`
}

// DefaultTopicOverride returns the built-in restriction: civil-engineering
// topics are refused, general mathematics stays allowed.
func DefaultTopicOverride() TopicOverride {
	return TopicOverride{
		Denylist: []string{
			"engenharia civil",
			"construção civil",
			"estruturas",
			"cálculo estrutural",
		},
		Allowlist: []string{
			"matemática",
			"cálculo geral",
		},
		Category: OverrideCategory,
	}
}

// Matches reports whether the message trips the override: some denylist term
// matches and no allowlist term does.
func (o TopicOverride) Matches(message string) bool {
	text := strings.ToLower(message)
	denied := false
	for _, term := range o.Denylist {
		if term != "" && strings.Contains(text, strings.ToLower(term)) {
			denied = true
			break
		}
	}
	if !denied {
		return false
	}
	for _, term := range o.Allowlist {
		if term != "" && strings.Contains(text, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

// Apply returns the verdict to use after the override has had its say: the
// forced unsafe verdict when the latest human message matches, otherwise the
// classifier's verdict unchanged.
func (o TopicOverride) Apply(verdict types.Verdict, latestHuman string) types.Verdict {
	if !o.Matches(latestHuman) {
		return verdict
	}
	category := o.Category
	if category == "" {
		category = OverrideCategory
	}
	return types.UnsafeVerdict(category)
}
