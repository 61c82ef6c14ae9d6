package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/repmeter/repmeter-agent/internal/pose"
)

const (
	maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics
	maxLineBytes   = 256 * 1024
)

// Config holds the subprocess source's configuration.
type Config struct {
	PythonPath    string        // path to python binary; empty = auto-detect
	ModuleName    string        // estimator module, default "repmeter_pose"
	CameraIndex   int           // camera device index passed to the estimator
	FrameWidth    int           // requested capture width
	FrameHeight   int           // requested capture height
	DoctorTimeout time.Duration // timeout for the doctor probe
	Logger        *slog.Logger
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig(logger *slog.Logger) Config {
	return Config{
		ModuleName:    "repmeter_pose",
		CameraIndex:   0,
		FrameWidth:    640,
		FrameHeight:   480,
		DoctorTimeout: 30 * time.Second,
		Logger:        logger,
	}
}

// SubprocessSource runs the Python pose estimator as a long-lived
// subprocess (`python -m <module> stream ...`) and reads one NDJSON
// skeleton record per Next call from its stdout. Reading is strictly
// sequential, so at most one inference result is consumed at a time and
// the estimator is never asked for a new frame before the previous one
// was delivered.
type SubprocessSource struct {
	cfg    Config
	python string // resolved python path

	mu      sync.Mutex
	cmd     *exec.Cmd
	scanner *bufio.Scanner
	stderr  *limitedWriter
	started bool
}

// New creates a SubprocessSource, resolving the Python binary path. The
// estimator process itself is launched lazily on the first Next call.
func New(cfg Config) (*SubprocessSource, error) {
	python, err := resolvePython(cfg.PythonPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate python: %w", err)
	}

	cfg.Logger.Info("pose source initialised",
		"python", python,
		"module", cfg.ModuleName,
		"camera", cfg.CameraIndex,
	)

	return &SubprocessSource{cfg: cfg, python: python}, nil
}

// Next returns the next skeleton from the estimator stream. A (nil,
// nil) return means the estimator produced a tick with no usable
// skeleton; io.EOF means the estimator exited.
func (s *SubprocessSource) Next(ctx context.Context) (*pose.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.started {
		if err := s.start(ctx); err != nil {
			return nil, err
		}
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("estimator stream read: %w", err)
		}
		s.cfg.Logger.Warn("estimator stream closed", "stderr_tail", s.stderr.String())
		return nil, io.EOF
	}

	line := bytes.TrimSpace(s.scanner.Bytes())
	if len(line) == 0 {
		return nil, nil
	}

	var rec FrameRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		// Noise on stdout is a skipped tick, not a failure.
		s.cfg.Logger.Debug("discarding unparseable frame line", "error", err)
		return nil, nil
	}
	return rec.ToFrame(), nil
}

// start launches the estimator stream process. Caller holds s.mu.
func (s *SubprocessSource) start(ctx context.Context) error {
	args := []string{
		"-m", s.cfg.ModuleName,
		"stream",
		"--camera", strconv.Itoa(s.cfg.CameraIndex),
		"--width", strconv.Itoa(s.cfg.FrameWidth),
		"--height", strconv.Itoa(s.cfg.FrameHeight),
	}
	cmd := exec.CommandContext(ctx, s.python, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("estimator stdout pipe: %w", err)
	}
	s.stderr = &limitedWriter{limit: maxStderrBytes}
	cmd.Stderr = s.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cannot start estimator: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	s.cmd = cmd
	s.scanner = scanner
	s.started = true

	s.cfg.Logger.Info("estimator stream started", "args", args, "pid", cmd.Process.Pid)
	return nil
}

// Close terminates the estimator process.
func (s *SubprocessSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Kill(); err != nil {
		return err
	}
	err := s.cmd.Wait()
	s.cmd = nil
	s.started = false
	if err != nil {
		s.cfg.Logger.Debug("estimator exited", "error", err)
	}
	return nil
}

// RunDoctor probes the estimator environment with
// `python -m <module> doctor --json` and parses the report from stdout.
func (s *SubprocessSource) RunDoctor(ctx context.Context) (*Capabilities, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DoctorTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.python, "-m", s.cfg.ModuleName, "doctor", "--json")

	var stdout bytes.Buffer
	stderr := &limitedWriter{limit: maxStderrBytes}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("doctor probe failed: %w (%s)", err, truncate(stderr.String(), 512))
	}

	var caps Capabilities
	if err := json.Unmarshal(stdout.Bytes(), &caps); err != nil {
		return nil, fmt.Errorf("cannot parse doctor JSON: %w", err)
	}
	caps.ProbedAt = time.Now()

	s.cfg.Logger.Info("doctor probe complete",
		"model", caps.ModelName,
		"model_loaded", caps.ModelLoaded,
		"cameras", caps.CameraCount,
		"deps", fmt.Sprintf("%d/%d", caps.Summary.Available, caps.Summary.Total),
	)
	return &caps, nil
}

// resolvePython finds a usable python binary.
func resolvePython(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured python %q not found", preferred)
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no python binary found on PATH (tried python3, python)")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last `limit` bytes written.
type limitedWriter struct {
	buf   bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.buf.Write(p)
	if lw.buf.Len() > lw.limit {
		b := lw.buf.Bytes()
		tail := make([]byte, lw.limit)
		copy(tail, b[len(b)-lw.limit:])
		lw.buf.Reset()
		lw.buf.Write(tail)
	}
	return n, nil
}

func (lw *limitedWriter) String() string {
	return lw.buf.String()
}
