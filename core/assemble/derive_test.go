package assemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mzalendo/darasa/core/entity"
)

func rowWith(typ string, fields map[string]interface{}) Row {
	return Row{Root: entity.New(typ, fields), Rel: map[string]Ref{}}
}

func TestPercentDisplay(t *testing.T) {
	tests := []struct {
		name string
		p    Percent
		want int
	}{
		{"ninety", Percent{Ratio: 0.9}, 90},
		{"rounds up", Percent{Ratio: 0.666}, 67},
		{"rounds down", Percent{Ratio: 0.333}, 33},
		{"over hundred unbounded", Percent{Ratio: 1.1}, 110},
		{"over hundred bounded", Percent{Ratio: 1.1, bounded: true}, 100},
		{"negative bounded", Percent{Ratio: -0.1, bounded: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Display())
		})
	}
}

func TestScorePercent(t *testing.T) {
	d := ScorePercent("pct", "score", "max_score")

	v, err := d.Fn(rowWith("grade", map[string]interface{}{"score": float64(18), "max_score": float64(20)}))
	assert.NoError(t, err)
	pct := v.(Percent)
	assert.Equal(t, 0.9, pct.Ratio)
	assert.Equal(t, 90, pct.Display())

	_, err = d.Fn(rowWith("grade", map[string]interface{}{"score": float64(18), "max_score": float64(0)}))
	assert.Error(t, err, "zero max score must not divide")
}

func TestAttendancePercent(t *testing.T) {
	d := AttendancePercent("pct", "present", "total")

	v, err := d.Fn(rowWith("summary", map[string]interface{}{"present": float64(3), "total": float64(4)}))
	assert.NoError(t, err)
	assert.Equal(t, 75, v.(Percent).Display())

	_, err = d.Fn(rowWith("summary", map[string]interface{}{"present": float64(0), "total": float64(0)}))
	assert.Error(t, err)
}

func TestOccupancyPercentClampsDisplayOnly(t *testing.T) {
	d := OccupancyPercent("occupancy", "current_enrollment", "capacity")

	v, err := d.Fn(rowWith("class", map[string]interface{}{"current_enrollment": float64(33), "capacity": float64(30)}))
	assert.NoError(t, err)
	pct := v.(Percent)
	assert.Equal(t, 100, pct.Display(), "display clamps")
	assert.Equal(t, 1.1, pct.Ratio, "ratio stays exact")
}

func TestFeeStatus(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	d := FeeStatus("status", "paid", "due_date", now)

	tests := []struct {
		name   string
		fields map[string]interface{}
		want   string
	}{
		{"paid wins over overdue", map[string]interface{}{"paid": true, "due_date": "2020-01-01"}, FeePaid},
		{"past due unpaid", map[string]interface{}{"paid": false, "due_date": "2026-05-31"}, FeeOverdue},
		{"future due unpaid", map[string]interface{}{"paid": false, "due_date": "2026-07-01"}, FeePending},
		{"no due date", map[string]interface{}{"paid": false}, FeePending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := d.Fn(rowWith("fee", tt.fields))
			assert.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestGradeColor(t *testing.T) {
	d := GradeColor("color", "letter")

	tests := []struct {
		letter, want string
	}{
		{"A", "green"},
		{"B", "blue"},
		{"C", "yellow"},
		{"D", "orange"},
		{"F", "red"},
		{"E", "gray"},
		{"", "gray"},
	}
	for _, tt := range tests {
		v, err := d.Fn(rowWith("grade", map[string]interface{}{"letter": tt.letter}))
		assert.NoError(t, err)
		assert.Equalf(t, tt.want, v, "letter %q", tt.letter)
	}
}
