package flow

import (
	"fmt"
	"strings"
)

// LabelSeparator joins decoded step labels.
const LabelSeparator = " → "

// DecodeLabel renders a serialized digit path as a human-readable label.
//
// Decoding walks the steps in position order and stops at the first absent or
// empty segment: a path with language and model set but state unset decodes
// only the language. Unknown digits never fail — they render through the
// step's fallback prefix, e.g. "Service-7". An empty path decodes to "No IVR".
func DecodeLabel(path string) string {
	parts := SplitPath(path)

	var labels []string
	for i, step := range Steps {
		if i >= len(parts) || parts[i] == "" {
			break
		}
		label, ok := decodeStep(step, parts, i)
		if !ok {
			break
		}
		labels = append(labels, label)
	}

	if len(labels) == 0 {
		return NoIVRLabel
	}
	return strings.Join(labels, LabelSeparator)
}

// DecodeSelections renders the label for a selections slice (non-empty
// leading choices), as produced by the merge layer.
func DecodeSelections(sels []string) string {
	return DecodeLabel(strings.Join(sels, Delimiter))
}

// StepLabel decodes a single digit for the step at the given position,
// ignoring parent-dependent overrides. Used for per-step distributions.
func StepLabel(pos int, digit string) string {
	if pos < 0 || pos >= len(Steps) {
		return digit
	}
	step := Steps[pos]
	if label, ok := step.Labels[digit]; ok {
		return label
	}
	fallback := step.Fallback
	if fallback == "" {
		fallback = step.Name
	}
	return fmt.Sprintf("%s-%s", fallback, digit)
}

func decodeStep(step Step, parts []string, pos int) (string, bool) {
	for gatePos, want := range step.Gate {
		if gatePos >= len(parts) || parts[gatePos] != want {
			return "", false
		}
	}

	digit := parts[pos]

	if step.Parent >= 0 {
		if step.Parent >= len(parts) {
			return "", false
		}
		ov, ok := step.Override[parts[step.Parent]]
		if !ok {
			// The parent choice has no follow-up menu; nothing to decode
			// at this position or beyond.
			return "", false
		}
		if label, ok := ov.Labels[digit]; ok {
			return label, true
		}
		return fmt.Sprintf("%s-%s", ov.Fallback, digit), true
	}

	if label, ok := step.Labels[digit]; ok {
		return label, true
	}
	return fmt.Sprintf("%s-%s", step.Fallback, digit), true
}
