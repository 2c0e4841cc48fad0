package events

import (
	"fmt"
	"sort"
)

// Event is one discrete trigger occurrence: the sample index it starts at
// and its numeric code. Label is set only for annotation-derived events.
type Event struct {
	Sample int    `json:"sample"`
	Code   int    `json:"code"`
	Label  string `json:"label,omitempty"`
}

// Mapping binds one user-chosen condition label to a numeric trigger code.
type Mapping struct {
	Label string `json:"label"`
	Code  int    `json:"code"`
}

// IDMap is the ordered label-to-code table a run is configured with.
// Labels are matched case-sensitively.
type IDMap []Mapping

// Validate checks the map is complete and the labels are unique before a
// run starts.
func (m IDMap) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("at least one condition label is required")
	}
	seen := make(map[string]bool, len(m))
	for _, entry := range m {
		if entry.Label == "" {
			return fmt.Errorf("condition label must not be empty")
		}
		if seen[entry.Label] {
			return fmt.Errorf("duplicate condition label %q", entry.Label)
		}
		seen[entry.Label] = true
	}
	return nil
}

// Labels returns the condition labels in map order.
func (m IDMap) Labels() []string {
	labels := make([]string, len(m))
	for i, entry := range m {
		labels[i] = entry.Label
	}
	return labels
}

// Result is the outcome of event extraction on one recording.
type Result struct {
	// Events in non-decreasing sample order.
	Events []Event
	// Vocabulary maps annotation labels to their assigned numeric codes.
	// Empty for raw numeric trigger extraction.
	Vocabulary map[string]int
}

// Codes returns the sorted set of distinct numeric codes present.
func (r *Result) Codes() []int {
	set := make(map[int]bool)
	for _, ev := range r.Events {
		set[ev.Code] = true
	}
	codes := make([]int, 0, len(set))
	for c := range set {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

// Labels returns the sorted label vocabulary, empty for raw triggers.
func (r *Result) Labels() []string {
	labels := make([]string, 0, len(r.Vocabulary))
	for l := range r.Vocabulary {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
