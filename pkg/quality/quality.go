// Package quality derives data quality signals from finished column
// summaries: completeness, uniqueness, type consistency, duplicate rows and
// likely personal data. Each signal produces zero or more Issues, and a
// column score is computed from the issues it collected.
package quality

import (
	"fmt"

	"github.com/ajitpratap0/prism/pkg/accumulator"
	"github.com/ajitpratap0/prism/pkg/types"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one quality finding.
type Issue struct {
	ID       string   `json:"id" yaml:"id"`
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// Completeness is the share of present values, or 1 for an empty column.
func Completeness(count, missing int64) float64 {
	if count <= 0 {
		return 1
	}
	present := count - missing
	if present < 0 {
		present = 0
	}
	return float64(present) / float64(count)
}

// CompletenessIssues grades a completeness ratio.
func CompletenessIssues(column string, completeness float64) []Issue {
	pct := completeness * 100
	switch {
	case completeness < 0.5:
		return []Issue{{
			ID:       column + "_completeness_critical",
			Message:  fmt.Sprintf("Only %.1f%% of values are present", pct),
			Severity: SeverityError,
		}}
	case completeness < 0.9:
		return []Issue{{
			ID:       column + "_completeness_low",
			Message:  fmt.Sprintf("Completeness is %.1f%% (below 90%%)", pct),
			Severity: SeverityWarning,
		}}
	case completeness < 1:
		return []Issue{{
			ID:       column + "_completeness",
			Message:  fmt.Sprintf("Completeness is %.1f%%", pct),
			Severity: SeverityInfo,
		}}
	}
	return nil
}

// Uniqueness is the distinct estimate over present values, capped at 1.
func Uniqueness(present int64, distinct uint64) float64 {
	if present <= 0 {
		return 1
	}
	d := float64(distinct)
	if d > float64(present) {
		d = float64(present)
	}
	return d / float64(present)
}

// UniquenessIssues flags near-constant columns and free-text like strings.
func UniquenessIssues(column string, uniqueness float64, present int64, t types.DataType) []Issue {
	var issues []Issue
	if uniqueness > 0 && uniqueness <= 0.02 && present > 1 {
		issues = append(issues, Issue{
			ID:       column + "_constant_column",
			Message:  "Column is constant or nearly constant",
			Severity: SeverityWarning,
		})
	}
	if t == types.String && uniqueness > 0.9 {
		issues = append(issues, Issue{
			ID:       column + "_high_cardinality",
			Message:  fmt.Sprintf("High cardinality: %.1f%% unique values (identifier or free text)", uniqueness*100),
			Severity: SeverityInfo,
		})
	}
	return issues
}

// TypeConsistency is the share of present values that conform to the
// locked type, or 1 when nothing is present.
func TypeConsistency(conforming, present int64) float64 {
	if present <= 0 {
		return 1
	}
	return float64(conforming) / float64(present)
}

// ConsistencyIssues grades a type consistency ratio.
func ConsistencyIssues(column string, t types.DataType, consistency float64, nonConforming int64) []Issue {
	if consistency >= 1 {
		return nil
	}
	sev := SeverityInfo
	if consistency < 0.95 {
		sev = SeverityWarning
	}
	return []Issue{{
		ID:       column + "_type_consistency",
		Message:  fmt.Sprintf("%d values (%.1f%%) do not conform to %s", nonConforming, (1-consistency)*100, t),
		Severity: sev,
	}}
}

// DuplicatePercentage is duplicates as a percentage of rows.
func DuplicatePercentage(duplicates, rows int64) float64 {
	if rows <= 0 {
		return 0
	}
	return float64(duplicates) / float64(rows) * 100
}

// DuplicateIssues grades duplicate rows across the whole input.
func DuplicateIssues(duplicates, rows int64) []Issue {
	if duplicates <= 0 {
		return nil
	}
	pct := DuplicatePercentage(duplicates, rows)
	sev := SeverityInfo
	switch {
	case pct > 10:
		sev = SeverityError
	case pct > 1:
		sev = SeverityWarning
	}
	return []Issue{{
		ID:       "duplicate_rows",
		Message:  fmt.Sprintf("%d duplicate rows detected (%.2f%% of total)", duplicates, pct),
		Severity: sev,
	}}
}

// Score starts at 1 and subtracts 0.3 if any error is present, 0.1 per
// warning and 0.02 per info, clamped to [0,1].
func Score(issues []Issue) float64 {
	var errs, warnings, infos int
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			infos++
		}
	}
	score := 1.0
	if errs > 0 {
		score -= 0.3
	}
	score -= 0.1*float64(warnings) + 0.02*float64(infos)
	if score < 0 {
		return 0
	}
	return score
}

// Column is the assessed quality of one column.
type Column struct {
	Completeness    float64
	Uniqueness      float64
	TypeConsistency float64
	Score           float64
	Issues          []Issue
	PII             PIIType
}

// Options tune Assess.
type Options struct {
	PIIMatchThreshold float64
}

// Assess evaluates every column level signal for a summary.
func Assess(s *accumulator.Summary, opts Options) Column {
	q := Column{
		Completeness:    Completeness(s.Count, s.Missing),
		Uniqueness:      Uniqueness(s.Present, s.Distinct),
		TypeConsistency: TypeConsistency(s.Conforming, s.Present),
	}
	q.Issues = append(q.Issues, CompletenessIssues(s.Name, q.Completeness)...)
	if s.Present > 0 {
		q.Issues = append(q.Issues, UniquenessIssues(s.Name, q.Uniqueness, s.Present, s.Type)...)
		q.Issues = append(q.Issues, ConsistencyIssues(s.Name, s.Type, q.TypeConsistency, s.NonConforming)...)
	}
	if pii, ok := DetectPII(s.Samples, s.Name, opts.PIIMatchThreshold); ok {
		q.PII = pii
		q.Issues = append(q.Issues, PIIIssue(s.Name, pii))
	}
	q.Score = Score(q.Issues)
	return q
}
