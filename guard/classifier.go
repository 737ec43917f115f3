package guard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/luminon/agentd/llm"
	"github.com/luminon/agentd/types"
)

// ReviewRole names the side of the conversation under review.
type ReviewRole string

const (
	ReviewUser  ReviewRole = "User"
	ReviewAgent ReviewRole = "Agent"
)

// categoryLabels is the fixed code→label table of the moderation model's
// taxonomy. Labels keep their trailing period here; it is stripped during
// parsing.
var categoryLabels = map[string]string{
	"S1":  "Violent Crimes.",
	"S2":  "Non-Violent Crimes.",
	"S3":  "Sex Crimes.",
	"S4":  "Child Exploitation.",
	"S5":  "Defamation.",
	"S6":  "Specialized Advice.",
	"S7":  "Privacy.",
	"S8":  "Intellectual Property.",
	"S9":  "Indiscriminate Weapons.",
	"S10": "Hate.",
	"S11": "Self-Harm.",
	"S12": "Sexual Content.",
	"S13": "Elections.",
	"S14": "Code Interpreter Abuse.",
}

// categoryList renders the taxonomy for the review prompt, in code order.
func categoryList() string {
	var b strings.Builder
	for i := 1; i <= len(categoryLabels); i++ {
		code := fmt.Sprintf("S%d", i)
		fmt.Fprintf(&b, "%s: %s\n", code, categoryLabels[code])
	}
	return strings.TrimRight(b.String(), "\n")
}

const promptTemplate = `task: check if there is unsafe content in '%[1]s' messages in conversations according to our safety policy with the below categories.

<begin unsafe content categories>
%[2]s
<end unsafe content categories>

<begin conversation>

%[3]s

<end conversation>

provide your safety assessment for only the last %[1]s in the above conversation:
- first line must read 'safe' or 'unsafe'.
- if unsafe, a second line must include a comma-separated list of violated categories.`

// Config configures the safety classifier.
type Config struct {
	// Model is the moderation model name resolved via the llm registry.
	Model string `yaml:"model"`
}

// Classifier wraps the moderation model behind a structured-verdict API.
// A nil provider means the capability is unconfigured: Classify fails open
// to safe verdicts and Degraded reports true.
type Classifier struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

// NewClassifier creates a classifier. Pass a nil provider to run in
// degraded (fail-open) mode.
func NewClassifier(provider llm.Provider, model string, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Classifier{provider: provider, model: model, logger: logger.With(zap.String("component", "guard"))}
	if c.Degraded() {
		c.logger.Warn("no moderation model configured, safety checks disabled (fail-open)")
	}
	return c
}

// Degraded reports whether the classifier is running without a moderation
// model, i.e. every verdict is an unconditional safe.
func (c *Classifier) Degraded() bool {
	return c.provider == nil
}

// CompilePrompt renders the review prompt over the human/agent transcript.
// Tool and custom messages never reach the moderation model.
func CompilePrompt(role ReviewRole, messages []types.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case types.RoleHuman:
			lines = append(lines, fmt.Sprintf("User: %s", m.Content))
		case types.RoleAgent:
			lines = append(lines, fmt.Sprintf("Agent: %s", m.Content))
		case types.RoleTool, types.RoleCustom:
			// excluded from the transcript
		}
	}
	transcript := strings.Join(lines, "\n\n")
	return fmt.Sprintf(promptTemplate, role, categoryList(), transcript)
}

// Classify runs one safety check over the conversation. The returned error
// is non-nil only when the moderation call itself failed; unparseable output
// is reported as an error verdict, not an error.
func (c *Classifier) Classify(ctx context.Context, role ReviewRole, messages []types.Message) (types.Verdict, error) {
	if c.Degraded() {
		return types.SafeVerdict(), nil
	}

	prompt := CompilePrompt(role, messages)
	resp, err := c.provider.Completion(ctx, &llm.ChatRequest{
		Model: c.model,
		Messages: []llm.ChatMessage{
			{Role: llm.WireRoleUser, Content: prompt},
		},
		// the safety model needs deterministic output; the zero value is
		// what we want, stated explicitly
		Temperature: 0,
	})
	if err != nil {
		return types.Verdict{}, types.NewError(types.ErrAdapterFailure, "safety classification failed").WithCause(err)
	}

	verdict := ParseVerdict(resp.Content)
	if verdict.Assessment == types.AssessmentError {
		c.logger.Warn("unparseable classifier output",
			zap.String("role", string(role)),
			zap.Int("output_len", len(resp.Content)))
	}
	return verdict, nil
}

// ParseVerdict parses raw classifier output by exact contract:
//
//	"safe"              → safe
//	"unsafe\n<codes>"   → unsafe with mapped category labels
//	anything else       → error verdict
//
// Unknown codes and any deviation from the two-line shape map to an error
// verdict; they are never coerced to safe.
func ParseVerdict(output string) types.Verdict {
	if output == "safe" {
		return types.SafeVerdict()
	}
	lines := strings.Split(output, "\n")
	if len(lines) != 2 || lines[0] != "unsafe" {
		return types.ErrorVerdict()
	}
	codes := strings.Split(lines[1], ",")
	categories := make([]string, 0, len(codes))
	for _, code := range codes {
		label, ok := categoryLabels[strings.TrimSpace(code)]
		if !ok {
			return types.ErrorVerdict()
		}
		categories = append(categories, strings.TrimSuffix(label, "."))
	}
	if len(categories) == 0 {
		return types.ErrorVerdict()
	}
	return types.UnsafeVerdict(categories...)
}
