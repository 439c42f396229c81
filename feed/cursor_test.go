package feed

import (
	"testing"

	"github.com/rushteam/feedkit/core"
)

func TestCursor_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		contentID string
	}{
		{"plain", 0.8, "c42"},
		{"zero score", 0, "a"},
		{"long float", 0.123456789012345, "content-with-long-id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := encodeCursor(tt.score, tt.contentID)
			cur, err := decodeCursor(encoded)
			if err != nil {
				t.Fatalf("decodeCursor: %v", err)
			}
			if cur.Score != tt.score || cur.ContentID != tt.contentID {
				t.Errorf("got (%v, %s), want (%v, %s)", cur.Score, cur.ContentID, tt.score, tt.contentID)
			}
		})
	}
}

func TestDecodeCursor(t *testing.T) {
	t.Run("empty means first page", func(t *testing.T) {
		cur, err := decodeCursor("")
		if err != nil || cur != nil {
			t.Errorf("got (%v, %v), want (nil, nil)", cur, err)
		}
	})

	for _, bad := range []string{"!!!not-base64!!!", "bm90IGpzb24"} {
		t.Run("malformed "+bad, func(t *testing.T) {
			_, err := decodeCursor(bad)
			de := core.GetDomainError(err)
			if de == nil || de.Code != core.ErrorCodeInvalidInput {
				t.Errorf("error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

// 翻页全序：综合分降序，同分 content_id 升序。
func TestCursor_After(t *testing.T) {
	cur := &cursor{Score: 0.8, ContentID: "m"}

	tests := []struct {
		name      string
		score     float64
		contentID string
		want      bool
	}{
		{"lower score is after", 0.5, "a", true},
		{"higher score is before", 0.9, "z", false},
		{"same score larger id is after", 0.8, "n", true},
		{"same score smaller id is before", 0.8, "a", false},
		{"cursor position itself excluded", 0.8, "m", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cur.after(tt.score, tt.contentID); got != tt.want {
				t.Errorf("after(%v, %s) = %v, want %v", tt.score, tt.contentID, got, tt.want)
			}
		})
	}
}
