package epoch

import (
	"fmt"
	"sort"
	"strings"
)

// Sortable and filterable numeric fields.
const (
	FieldOverallScore    = "overall_score"
	FieldContentQuality  = "content_quality"
	FieldAudienceQuality = "audience_quality"
	FieldBrandAlignment  = "brand_alignment"
	FieldFollowers       = "followers"
	FieldGrowthRate      = "growth_rate"
)

// RangeFilter bounds one numeric field. Nil bounds are open.
type RangeFilter struct {
	Field string
	Min   *float64
	Max   *float64
}

// Query describes one ranked listing request. All conditions are
// conjunctive. A zero Query returns every row ranked best first.
type Query struct {
	// Text filters on handle or category, case-insensitive substring.
	Text string

	Ranges []RangeFilter

	// SortField defaults to overall_score. Descending defaults to the
	// natural direction for a ranking: highest first.
	SortField  string
	Descending bool

	Offset int
	Limit  int
}

// Evaluate applies the query to the view and returns the page plus the
// total number of rows matching before pagination. The view is never
// mutated; results are copies ordered per the query with subject id as
// the deterministic tie-break.
func (v *View) Evaluate(q Query) ([]Row, int, error) {
	for _, r := range q.Ranges {
		if !knownField(r.Field) {
			return nil, 0, fmt.Errorf("%w: %q", ErrUnknownField, r.Field)
		}
	}
	sortField, descending := q.SortField, q.Descending
	if sortField == "" {
		sortField, descending = FieldOverallScore, true
	}
	if !knownField(sortField) {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownField, sortField)
	}

	matched := make([]Row, 0, len(v.rows))
	text := strings.ToLower(q.Text)
	for _, row := range v.rows {
		if text != "" &&
			!strings.Contains(strings.ToLower(row.Handle), text) &&
			!strings.Contains(strings.ToLower(row.Category), text) {
			continue
		}
		if !matchRanges(row, q.Ranges) {
			continue
		}
		matched = append(matched, row)
	}

	sortRows(matched, sortField, descending)

	total := len(matched)
	page := paginate(matched, q.Offset, q.Limit)
	return page, total, nil
}

func matchRanges(row Row, ranges []RangeFilter) bool {
	for _, r := range ranges {
		val, ok := fieldValue(row, r.Field)
		if !ok {
			// A row without the value cannot satisfy a bound on it.
			return false
		}
		if r.Min != nil && val < *r.Min {
			return false
		}
		if r.Max != nil && val > *r.Max {
			return false
		}
	}
	return true
}

func sortRows(rows []Row, field string, descending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, oki := fieldValue(rows[i], field)
		vj, okj := fieldValue(rows[j], field)

		// Rows missing the sort value go last in either direction.
		if oki != okj {
			return oki
		}
		if oki && vi != vj {
			if descending {
				return vi > vj
			}
			return vi < vj
		}
		return rows[i].SubjectID < rows[j].SubjectID
	})
}

func paginate(rows []Row, offset, limit int) []Row {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []Row{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

// fieldValue extracts a numeric field; growth_rate is absent until the
// subject has a trend with a known growth rate.
func fieldValue(row Row, field string) (float64, bool) {
	switch field {
	case FieldOverallScore:
		return row.OverallScore, true
	case FieldContentQuality:
		return row.SubScores.ContentQuality, true
	case FieldAudienceQuality:
		return row.SubScores.AudienceQuality, true
	case FieldBrandAlignment:
		return row.SubScores.BrandAlignment, true
	case FieldFollowers:
		return row.Followers, true
	case FieldGrowthRate:
		if row.Trend == nil || !row.Trend.GrowthKnown {
			return 0, false
		}
		return row.Trend.GrowthRate, true
	default:
		return 0, false
	}
}

func knownField(field string) bool {
	switch field {
	case FieldOverallScore, FieldContentQuality, FieldAudienceQuality,
		FieldBrandAlignment, FieldFollowers, FieldGrowthRate:
		return true
	}
	return false
}
