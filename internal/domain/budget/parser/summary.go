package parser

import "strconv"

// Summary holds per-type counts and the share of work items.
type Summary struct {
	ByType    map[ItemType]int `json:"by_type"`
	WorkRatio float64          `json:"work_ratio"`
}

// Outcome is the caller-facing view of an import.
type Outcome struct {
	Inserted  int              `json:"inserted"`
	Warnings  []string         `json:"warnings"`
	ByType    map[ItemType]int `json:"by_type"`
	WorkRatio float64          `json:"work_ratio"`
}

// Summarize counts items per type. WorkRatio is rounded to four decimals
// and is zero for an empty set.
func Summarize(items []LineItem) Summary {
	s := Summary{ByType: make(map[ItemType]int)}
	for _, it := range items {
		s.ByType[it.Type]++
	}
	if len(items) == 0 {
		return s
	}

	// Rounds the binary quotient half-to-even, so 1/32 gives 0.0312.
	ratio := float64(s.ByType[TypeWork]) / float64(len(items))
	s.WorkRatio, _ = strconv.ParseFloat(strconv.FormatFloat(ratio, 'f', 4, 64), 64)
	return s
}

// Outcome summarizes the result after inserted items were persisted.
func (r *Result) Outcome(inserted int) Outcome {
	s := Summarize(r.Items)
	warnings := CapWarnings(r.Warnings)
	if warnings == nil {
		warnings = []string{}
	}
	return Outcome{
		Inserted:  inserted,
		Warnings:  warnings,
		ByType:    s.ByType,
		WorkRatio: s.WorkRatio,
	}
}
