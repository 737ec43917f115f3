package guard

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/luminon/agentd/types"
)

// ParseVerdict must uphold its invariants for arbitrary input: it never
// panics, never returns an invalid verdict, and only returns unsafe when the
// input is a well-formed two-line response over known codes.
func TestProperty_ParseVerdict_ArbitraryInput(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		output := rapid.String().Draw(rt, "output")

		v := ParseVerdict(output)
		if err := v.Validate(); err != nil {
			rt.Fatalf("invalid verdict for %q: %v", output, err)
		}
		if v.Assessment == types.AssessmentSafe && output != "safe" {
			rt.Fatalf("only the literal \"safe\" may parse safe, got %q", output)
		}
	})
}

// Any well-formed unsafe response over known codes round-trips to an unsafe
// verdict carrying one label per code, period stripped.
func TestProperty_ParseVerdict_WellFormedUnsafe(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "numCodes")
		codes := make([]string, n)
		for i := range codes {
			codes[i] = fmt.Sprintf("S%d", rapid.IntRange(1, 14).Draw(rt, fmt.Sprintf("code_%d", i)))
		}

		v := ParseVerdict("unsafe\n" + strings.Join(codes, ","))
		if !v.IsUnsafe() {
			rt.Fatalf("well-formed unsafe response parsed as %s", v.Assessment)
		}
		if len(v.Categories) != n {
			rt.Fatalf("expected %d categories, got %d", n, len(v.Categories))
		}
		for _, c := range v.Categories {
			if strings.HasSuffix(c, ".") {
				rt.Fatalf("category label %q kept its trailing period", c)
			}
		}
	})
}
