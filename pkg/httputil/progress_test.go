package httputil

import (
	"io"
	"strings"
	"testing"
)

func TestProgressReader(t *testing.T) {
	var reports [][2]int64
	r := NewProgressReader(strings.NewReader(strings.Repeat("x", 1000)), 1000, 0, func(read, total int64) {
		reports = append(reports, [2]int64{read, total})
	})

	buf := make([]byte, 100)
	for {
		if _, err := r.Read(buf); err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
	}

	if r.BytesRead() != 1000 {
		t.Errorf("BytesRead() = %d, want 1000", r.BytesRead())
	}
	if len(reports) == 0 {
		t.Fatal("no progress reports")
	}
	last := reports[len(reports)-1]
	if last != [2]int64{1000, 1000} {
		t.Errorf("last report = %v, want [1000 1000]", last)
	}
	for i := 1; i < len(reports); i++ {
		if reports[i][0] < reports[i-1][0] {
			t.Errorf("reports not monotonic: %v", reports)
		}
	}
}
