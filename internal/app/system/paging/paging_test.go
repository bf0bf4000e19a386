package paging

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", DefaultLimit},
		{"?limit=5", 5},
		{"?limit=0", DefaultLimit},
		{"?limit=-3", DefaultLimit},
		{"?limit=abc", DefaultLimit},
		{"?limit=1000", MaxLimit},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/documents"+tt.query, nil)
			if got := ParseLimit(r); got != tt.want {
				t.Errorf("ParseLimit(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestTimeCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)
	id := primitive.NewObjectID()

	c, ok := DecodeTimeCursor(EncodeTimeCursor(at, id))
	if !ok {
		t.Fatal("DecodeTimeCursor failed")
	}
	if !c.At.Equal(at) || c.ID != id {
		t.Errorf("decoded %+v, want %v/%v", c, at, id)
	}

	if _, ok := DecodeTimeCursor(""); ok {
		t.Error("empty cursor decoded")
	}
	if _, ok := DecodeTimeCursor("!!not-a-cursor"); ok {
		t.Error("garbage cursor decoded")
	}
}

func TestTrimPage(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	if !TrimPage(&rows, 3) {
		t.Error("expected more")
	}
	if len(rows) != 3 {
		t.Errorf("len = %d, want 3", len(rows))
	}
	rows = []int{1, 2}
	if TrimPage(&rows, 3) {
		t.Error("expected no more")
	}
}
