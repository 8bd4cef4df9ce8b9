// Package flow defines the fixed IVR menu tree and the codec between digit
// paths and human-readable labels.
//
// The tree is five levels deep: language, state, service, model, hp. Each
// step owns a fixed position in the serialized path; positions are permanent
// for a deployment because every stored path encodes them implicitly.
package flow

import "strings"

// Delimiter joins digit choices into a serialized path.
const Delimiter = "-"

// StepCount is the depth of the menu tree.
const StepCount = 5

// EmptyPath is the serialized form of a path record with no choices set.
const EmptyPath = "----"

// NoIVRLabel is the decoded label for an absent or empty path.
const NoIVRLabel = "No IVR"

// Override is a parent-dependent label table: when a step's meaning depends
// on an earlier choice, the digit→label map is selected by the parent digit.
type Override struct {
	Labels   map[string]string
	Fallback string // label prefix for digits missing from Labels
}

// Step describes one level of the menu tree.
type Step struct {
	Name     string            // step name as sent by the webhook
	Fallback string            // label prefix for unknown digits, e.g. "Service-7"
	Labels   map[string]string // digit → label; nil when Overrides apply
	Parent   int               // position whose digit selects the Override; -1 if none
	Override map[string]Override
	Gate     map[int]string // position → required digit for this step to decode
}

// Steps is the menu tree in position order. Changing a mapping here is a data
// change; reordering entries breaks every stored path.
var Steps = []Step{
	{
		Name:     "language",
		Fallback: "Lang",
		Labels:   map[string]string{"1": "Hindi", "2": "English"},
		Parent:   -1,
	},
	{
		Name:     "state",
		Fallback: "State",
		Labels: map[string]string{
			"1": "Rajasthan",
			"2": "MP",
			"3": "Maharashtra",
			"4": "Other State",
		},
		Parent: -1,
	},
	{
		Name:     "service",
		Fallback: "Service",
		Labels: map[string]string{
			"1": "Sell Machine",
			"2": "Buy Old",
			"3": "Buy New",
			"4": "Finance",
			"5": "Other Info",
			"9": "Consultant",
		},
		Parent: -1,
	},
	{
		// The model step's digits mean different things depending on the
		// service chosen at position 2.
		Name:   "model",
		Parent: 2,
		Override: map[string]Override{
			"1": { // Sell Machine: vintage of the machine being sold
				Labels: map[string]string{
					"1": "Before 2014",
					"2": "2015-2017",
					"3": "2018-2020",
					"4": "2020+",
				},
				Fallback: "Model",
			},
			"2": { // Buy Old: vintage band of the machine wanted
				Labels: map[string]string{
					"1": "2020+",
					"2": "2018-2020",
					"3": "2015-2017",
					"4": "Before 2014",
				},
				Fallback: "Model",
			},
			"4": { // Finance sub-type
				Labels: map[string]string{
					"1": "Refinance",
					"2": "New Finance",
				},
				Fallback: "Finance",
			},
		},
	},
	{
		// HP selection only exists for Buy Old → 2020+ machines.
		Name:     "hp",
		Fallback: "HP",
		Labels:   map[string]string{"1": "49 HP", "2": "74 HP"},
		Parent:   -1,
		Gate:     map[int]string{2: "2", 3: "1"},
	},
}

// StepIndex returns the position of a step by name.
func StepIndex(name string) (int, bool) {
	for i, s := range Steps {
		if s.Name == name {
			return i, true
		}
	}
	return 0, false
}

// ValidStep reports whether name is one of the defined steps.
func ValidStep(name string) bool {
	_, ok := StepIndex(name)
	return ok
}

// StepNames returns the step names in position order.
func StepNames() []string {
	names := make([]string, len(Steps))
	for i, s := range Steps {
		names[i] = s.Name
	}
	return names
}

// CleanDigit strips quote characters that some provider payloads wrap around
// the digit value.
func CleanDigit(digit string) string {
	return strings.Trim(digit, `"'`)
}

// JoinChoices serializes choices into a path string. Missing trailing choices
// render as empty segments, so a language-and-service-only record serializes
// as "1--3--".
func JoinChoices(choices []string) string {
	segs := make([]string, StepCount)
	copy(segs, choices)
	return strings.Join(segs, Delimiter)
}

// SplitPath splits a serialized path into positional segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Delimiter)
}
