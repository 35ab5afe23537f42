package assemble

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Percent carries an exact ratio plus its display rounding. Comparisons use
// Ratio; only rendering rounds (and, when bounded, clamps).
type Percent struct {
	Ratio   float64 // 0.9 for 90%
	bounded bool
}

// Display returns the ratio as a whole percentage, rounded to nearest.
// Bounded percents clamp the displayed value to [0, 100]; Ratio is never
// clamped.
func (p Percent) Display() int {
	n := int(math.Round(p.Ratio * 100))
	if p.bounded {
		if n < 0 {
			return 0
		}
		if n > 100 {
			return 100
		}
	}
	return n
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(p.Display())), nil
}

var _ json.Marshaler = Percent{}

// Fee statuses, evaluated at build time against the wall clock.
const (
	FeePaid    = "Paid"
	FeeOverdue = "Overdue"
	FeePending = "Pending"
)

// gradeColors is the fixed letter-grade bucket mapping; anything unknown
// falls back to the neutral bucket.
var gradeColors = map[string]string{
	"A": "green",
	"B": "blue",
	"C": "yellow",
	"D": "orange",
	"F": "red",
}

const gradeColorNeutral = "gray"

// AttendancePercent derives present/total as a Percent. A zero total makes
// the field unavailable instead of failing the row.
func AttendancePercent(field, presentField, totalField string) Derivation {
	return Derivation{Field: field, Fn: func(row Row) (interface{}, error) {
		total := row.Root.Float(totalField)
		if total == 0 {
			return nil, errors.New("no classes held")
		}
		return Percent{Ratio: row.Root.Float(presentField) / total}, nil
	}}
}

// ScorePercent derives score/max_score as a Percent; max_score == 0 yields
// unavailable.
func ScorePercent(field, scoreField, maxField string) Derivation {
	return Derivation{Field: field, Fn: func(row Row) (interface{}, error) {
		max := row.Root.Float(maxField)
		if max == 0 {
			return nil, errors.New("zero max score")
		}
		return Percent{Ratio: row.Root.Float(scoreField) / max}, nil
	}}
}

// OccupancyPercent derives enrollment/capacity as a bounded Percent: the
// displayed value clamps to [0, 100], the underlying ratio does not.
func OccupancyPercent(field, enrolledField, capacityField string) Derivation {
	return Derivation{Field: field, Fn: func(row Row) (interface{}, error) {
		capacity := row.Root.Float(capacityField)
		if capacity == 0 {
			return nil, errors.New("zero capacity")
		}
		return Percent{Ratio: row.Root.Float(enrolledField) / capacity, bounded: true}, nil
	}}
}

// FeeStatus derives Paid/Overdue/Pending. Paid wins regardless of due date;
// the overdue check compares against now() at build time and is never cached.
func FeeStatus(field, paidField, dueField string, now func() time.Time) Derivation {
	if now == nil {
		now = time.Now
	}
	return Derivation{Field: field, Fn: func(row Row) (interface{}, error) {
		if row.Root.Bool(paidField) {
			return FeePaid, nil
		}
		due := row.Root.Time(dueField)
		if !due.IsZero() && due.Before(now()) {
			return FeeOverdue, nil
		}
		return FeePending, nil
	}}
}

// GradeColor buckets a letter grade into its display color.
func GradeColor(field, letterField string) Derivation {
	return Derivation{Field: field, Fn: func(row Row) (interface{}, error) {
		if color, ok := gradeColors[row.Root.String(letterField)]; ok {
			return color, nil
		}
		return gradeColorNeutral, nil
	}}
}
