package entity

import (
	"testing"
)

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantIDs []int
		wantErr bool
	}{
		{name: "bare array", body: `[{"id": 1, "name": "Ama"}, {"id": 2, "name": "Bekele"}]`, wantIDs: []int{1, 2}},
		{name: "results envelope", body: `{"results": [{"id": 7}]}`, wantIDs: []int{7}},
		{name: "empty array", body: `[]`, wantIDs: []int{}},
		{name: "empty results", body: `{"results": []}`, wantIDs: []int{}},
		{name: "envelope without results", body: `{"count": 2}`, wantErr: true},
		{name: "scalar payload", body: `42`, wantErr: true},
		{name: "non-object element", body: `[1, 2]`, wantErr: true},
		{name: "invalid json", body: `{]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ents, err := NormalizeList("student", []byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(ents) != len(tt.wantIDs) {
				t.Fatalf("got %d entities, want %d", len(ents), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if ents[i].ID != want {
					t.Errorf("entity[%d].ID = %d, want %d", i, ents[i].ID, want)
				}
				if ents[i].Type != "student" {
					t.Errorf("entity[%d].Type = %q, want student", i, ents[i].Type)
				}
			}
		})
	}
}

func TestNormalizeOne(t *testing.T) {
	e, err := NormalizeOne("fee", []byte(`{"id": 3, "title": "Tuition", "amount": 120.5}`))
	if err != nil {
		t.Fatalf("NormalizeOne() failed: %v", err)
	}
	if e.ID != 3 || e.String("title") != "Tuition" || e.Float("amount") != 120.5 {
		t.Errorf("unexpected entity: %+v", e)
	}

	if _, err := NormalizeOne("fee", []byte(`[1]`)); err == nil {
		t.Error("NormalizeOne() accepted a non-object payload")
	}
}
