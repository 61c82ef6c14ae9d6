// Package config provides configuration management for the RepMeter Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8790
	DefaultLogLevel = "info"
	DefaultDataDir  = ".repmeter"

	// Environment variable names
	EnvPort     = "REPMETER_PORT"
	EnvLogLevel = "REPMETER_LOG_LEVEL"
	EnvDataDir  = "REPMETER_DATA_DIR"
	EnvHeadless = "REPMETER_HEADLESS"

	// Pose estimator environment variable names
	EnvPosePython    = "REPMETER_POSE_PYTHON"
	EnvPoseModule    = "REPMETER_POSE_MODULE"
	EnvCameraIndex   = "REPMETER_CAMERA_INDEX"
	EnvFrameWidth    = "REPMETER_FRAME_WIDTH"
	EnvFrameHeight   = "REPMETER_FRAME_HEIGHT"
	EnvReplayPath    = "REPMETER_REPLAY"
	EnvFlushInterval = "REPMETER_FLUSH_INTERVAL_MS"
	EnvMinConfidence = "REPMETER_MIN_CONFIDENCE"

	// Database filename
	DBFilename = "repmeter.db"

	// Pose estimator defaults
	DefaultPoseModule        = "repmeter_pose"
	DefaultCameraIndex       = 0
	DefaultFrameWidth        = 640
	DefaultFrameHeight       = 480
	DefaultPoseTimeoutDoctor = 30 // seconds
	DefaultFlushIntervalMs   = 800
	DefaultMinConfidence     = 0.2
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	Headless() bool
	PosePython() string
	PoseModule() string
	CameraIndex() int
	FrameWidth() int
	FrameHeight() int
	ReplayPath() string
	FlushInterval() time.Duration
	MinConfidence() float64
	PoseTimeoutDoctor() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	headless bool

	posePython    string
	poseModule    string
	cameraIndex   int
	frameWidth    int
	frameHeight   int
	replayPath    string
	flushInterval time.Duration
	minConfidence float64
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		cameraIndex:   DefaultCameraIndex,
		frameWidth:    DefaultFrameWidth,
		frameHeight:   DefaultFrameHeight,
		flushInterval: DefaultFlushIntervalMs * time.Millisecond,
		minConfidence: DefaultMinConfidence,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.posePython = os.Getenv(EnvPosePython)
	cfg.replayPath = os.Getenv(EnvReplayPath)

	if pm := os.Getenv(EnvPoseModule); pm != "" {
		cfg.poseModule = pm
	}

	if ci := os.Getenv(EnvCameraIndex); ci != "" {
		idx, err := strconv.Atoi(ci)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid %s: must be a non-negative integer", EnvCameraIndex)
		}
		cfg.cameraIndex = idx
	}

	if fw := os.Getenv(EnvFrameWidth); fw != "" {
		w, err := strconv.Atoi(fw)
		if err != nil || w < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvFrameWidth)
		}
		cfg.frameWidth = w
	}

	if fh := os.Getenv(EnvFrameHeight); fh != "" {
		h, err := strconv.Atoi(fh)
		if err != nil || h < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvFrameHeight)
		}
		cfg.frameHeight = h
	}

	if fi := os.Getenv(EnvFlushInterval); fi != "" {
		ms, err := strconv.Atoi(fi)
		if err != nil || ms < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer (milliseconds)", EnvFlushInterval)
		}
		cfg.flushInterval = time.Duration(ms) * time.Millisecond
	}

	if mc := os.Getenv(EnvMinConfidence); mc != "" {
		conf, err := strconv.ParseFloat(mc, 64)
		if err != nil || conf < 0 || conf > 1 {
			return nil, fmt.Errorf("invalid %s: must be a number between 0 and 1", EnvMinConfidence)
		}
		cfg.minConfidence = conf
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// Headless reports whether the tray UI should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) PosePython() string {
	return c.posePython
}

func (c *EnvConfig) PoseModule() string {
	if c.poseModule != "" {
		return c.poseModule
	}
	return DefaultPoseModule
}

func (c *EnvConfig) CameraIndex() int {
	return c.cameraIndex
}

func (c *EnvConfig) FrameWidth() int {
	return c.frameWidth
}

func (c *EnvConfig) FrameHeight() int {
	return c.frameHeight
}

// ReplayPath returns the NDJSON replay file to use instead of a live
// camera, or "" for live capture.
func (c *EnvConfig) ReplayPath() string {
	return c.replayPath
}

// FlushInterval returns the minimum spacing between count publications
func (c *EnvConfig) FlushInterval() time.Duration {
	return c.flushInterval
}

// MinConfidence returns the keypoint confidence threshold
func (c *EnvConfig) MinConfidence() float64 {
	return c.minConfidence
}

func (c *EnvConfig) PoseTimeoutDoctor() time.Duration {
	return time.Duration(DefaultPoseTimeoutDoctor) * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
