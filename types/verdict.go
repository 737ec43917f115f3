package types

import "fmt"

// Assessment is the outcome class of a safety classification.
type Assessment string

const (
	// AssessmentSafe means the classifier found no policy violation.
	AssessmentSafe Assessment = "safe"
	// AssessmentUnsafe means at least one category was violated.
	AssessmentUnsafe Assessment = "unsafe"
	// AssessmentError means the classifier output did not match the
	// expected contract. An unparseable response is never coerced to
	// safe or unsafe.
	AssessmentError Assessment = "error"
)

// Verdict is the structured result of one safety classification.
// Invariant: an unsafe verdict always carries at least one category.
type Verdict struct {
	Assessment Assessment `json:"assessment"`
	Categories []string   `json:"categories,omitempty"`
}

// SafeVerdict returns a safe verdict.
func SafeVerdict() Verdict {
	return Verdict{Assessment: AssessmentSafe}
}

// UnsafeVerdict returns an unsafe verdict with the violated categories.
func UnsafeVerdict(categories ...string) Verdict {
	return Verdict{Assessment: AssessmentUnsafe, Categories: categories}
}

// ErrorVerdict returns a verdict for unparseable classifier output.
func ErrorVerdict() Verdict {
	return Verdict{Assessment: AssessmentError}
}

// IsUnsafe reports whether the verdict blocks processing.
func (v Verdict) IsUnsafe() bool {
	return v.Assessment == AssessmentUnsafe
}

// Validate checks the verdict invariants.
func (v Verdict) Validate() error {
	switch v.Assessment {
	case AssessmentSafe, AssessmentError:
		return nil
	case AssessmentUnsafe:
		if len(v.Categories) == 0 {
			return fmt.Errorf("unsafe verdict must carry at least one category")
		}
		return nil
	default:
		return fmt.Errorf("unknown assessment: %q", v.Assessment)
	}
}
