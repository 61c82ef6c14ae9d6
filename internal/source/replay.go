package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/repmeter/repmeter-agent/internal/pose"
)

// ReplaySource reads pre-recorded NDJSON frame records from a file,
// one record per Next call. With pacing enabled it sleeps out the
// recorded inter-frame gaps so a session replays in real time;
// without it the stream is consumed as fast as the engine asks.
type ReplaySource struct {
	path    string
	pace    bool
	logger  *slog.Logger
	file    *os.File
	scanner *bufio.Scanner
	lastTS  int64 // previous record's ts_ms, 0 before the first frame
}

// NewReplay opens an NDJSON recording for replay.
func NewReplay(path string, pace bool, logger *slog.Logger) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open replay file: %w", err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	logger.Info("replay source opened", "path", path, "paced", pace)
	return &ReplaySource{path: path, pace: pace, logger: logger, file: f, scanner: scanner}, nil
}

// Next returns the next recorded frame, or io.EOF once the recording is
// drained. Unparseable lines and records without a skeleton yield
// (nil, nil), matching a live estimator's empty ticks.
func (r *ReplaySource) Next(ctx context.Context) (*pose.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, fmt.Errorf("replay read: %w", err)
		}
		return nil, io.EOF
	}

	line := bytes.TrimSpace(r.scanner.Bytes())
	if len(line) == 0 {
		return nil, nil
	}

	var rec FrameRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		r.logger.Debug("discarding unparseable replay line", "error", err)
		return nil, nil
	}

	if r.pace && r.lastTS > 0 && rec.TimestampMs > r.lastTS {
		gap := time.Duration(rec.TimestampMs-r.lastTS) * time.Millisecond
		select {
		case <-time.After(gap):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.lastTS = rec.TimestampMs

	return rec.ToFrame(), nil
}

// Close releases the underlying file.
func (r *ReplaySource) Close() error {
	return r.file.Close()
}
