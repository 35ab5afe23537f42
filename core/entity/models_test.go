package entity

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEntityFK(t *testing.T) {
	e := New("enrollment", map[string]interface{}{
		"id":         float64(10),
		"student_id": float64(5),
		"teacher_id": nil,
	})

	if fk := e.FK("student_id"); !fk.Valid || fk.Int != 5 {
		t.Errorf("FK(student_id) = %+v, want valid 5", fk)
	}
	if fk := e.FK("teacher_id"); fk.Valid {
		t.Errorf("FK(teacher_id) = %+v, want null (explicit JSON null)", fk)
	}
	if fk := e.FK("class_id"); fk.Valid {
		t.Errorf("FK(class_id) = %+v, want null (missing field)", fk)
	}
}

func TestEntityTime(t *testing.T) {
	e := New("fee", map[string]interface{}{
		"due_date":   "2020-01-01",
		"created_at": "2021-06-01T10:30:00Z",
		"bogus":      "whenever",
	})

	if got := e.Time("due_date"); !got.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Time(due_date) = %v", got)
	}
	if got := e.Time("created_at"); got.IsZero() {
		t.Error("Time(created_at) = zero, want parsed RFC3339")
	}
	if got := e.Time("bogus"); !got.IsZero() {
		t.Errorf("Time(bogus) = %v, want zero", got)
	}
}

func TestEntityLabel(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]interface{}
		want   string
	}{
		{name: "name field", fields: map[string]interface{}{"id": float64(1), "name": "Ama"}, want: "Ama"},
		{name: "title field", fields: map[string]interface{}{"id": float64(2), "title": "Exam week"}, want: "Exam week"},
		{name: "fallback", fields: map[string]interface{}{"id": float64(42)}, want: "Student 42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New("student", tt.fields)
			if got := e.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntityMarshalJSON(t *testing.T) {
	e := New("class", map[string]interface{}{"id": float64(9), "name": "SS1A"})
	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if decoded["id"] != float64(9) || decoded["name"] != "SS1A" {
		t.Errorf("marshalled entity = %v", decoded)
	}
}
