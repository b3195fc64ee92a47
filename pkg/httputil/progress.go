package httputil

import (
	"io"
	"time"
)

// ProgressReader counts bytes read from R and reports the running total to
// OnProgress. Reports are throttled to one per Interval, plus a final
// report at EOF.
type ProgressReader struct {
	R          io.Reader
	Total      int64
	Interval   time.Duration
	OnProgress func(read, total int64)

	read int64
	last time.Time
}

// NewProgressReader returns a reader reporting at most every interval.
// total is -1 when unknown.
func NewProgressReader(r io.Reader, total int64, interval time.Duration, fn func(read, total int64)) *ProgressReader {
	return &ProgressReader{R: r, Total: total, Interval: interval, OnProgress: fn}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.R.Read(b)
	p.read += int64(n)
	if p.OnProgress != nil {
		now := time.Now()
		if err == io.EOF || now.Sub(p.last) >= p.Interval {
			p.last = now
			p.OnProgress(p.read, p.Total)
		}
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (p *ProgressReader) BytesRead() int64 { return p.read }
