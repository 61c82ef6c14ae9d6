package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/repmeter/repmeter-agent/internal/api"
	"github.com/repmeter/repmeter-agent/internal/config"
	"github.com/repmeter/repmeter-agent/internal/counter"
	"github.com/repmeter/repmeter-agent/internal/detect"
	"github.com/repmeter/repmeter-agent/internal/engine"
	"github.com/repmeter/repmeter-agent/internal/history"
	"github.com/repmeter/repmeter-agent/internal/logging"
	"github.com/repmeter/repmeter-agent/internal/source"
	"github.com/repmeter/repmeter-agent/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting repmeter agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := history.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := history.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   REPMETER AGENT v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	var (
		frameSource engine.FrameSource
		closer      io.Closer
		doctor      *source.CachedDoctor
		sourceKind  string
	)

	if replayPath := cfg.ReplayPath(); replayPath != "" {
		logger.Info("using replay source", "path", logging.SanitizePath(replayPath))
		replay, err := source.NewReplay(replayPath, true, logger)
		if err != nil {
			return fmt.Errorf("failed to open replay file: %w", err)
		}
		frameSource = replay
		closer = replay
		sourceKind = "replay"
	} else {
		srcCfg := source.Config{
			PythonPath:    cfg.PosePython(),
			ModuleName:    cfg.PoseModule(),
			CameraIndex:   cfg.CameraIndex(),
			FrameWidth:    cfg.FrameWidth(),
			FrameHeight:   cfg.FrameHeight(),
			DoctorTimeout: cfg.PoseTimeoutDoctor(),
			Logger:        logger,
		}
		live, err := source.New(srcCfg)
		if err != nil {
			return fmt.Errorf("failed to initialise pose source: %w", err)
		}
		frameSource = live
		closer = live
		sourceKind = "camera"

		doctor = source.NewCachedDoctor(live, logger)
		initCtx, initCancel := context.WithTimeout(context.Background(), srcCfg.DoctorTimeout)
		defer initCancel()
		if caps, err := doctor.Refresh(initCtx); err != nil {
			logger.Warn("initial doctor probe failed", "error", err)
		} else {
			logger.Info("pose estimator capabilities detected",
				"model", caps.ModelName,
				"model_loaded", caps.ModelLoaded,
				"cameras", caps.CameraCount,
				"deps", fmt.Sprintf("%d/%d", caps.Summary.Available, caps.Summary.Total),
			)
			if !caps.Ready() {
				logger.Warn("pose estimator not ready, counting will produce no frames")
			}
		}
	}

	store := counter.NewStore()
	buffer := counter.NewBuffer(store, cfg.FlushInterval())
	registry := detect.NewRegistry(detect.DefaultTunables())

	eng := engine.New(engine.Config{
		Source:   frameSource,
		Registry: registry,
		Buffer:   buffer,
		Logger:   logging.WithComponent(logger, "engine"),
		MinScore: cfg.MinConfidence(),
	})

	session := &history.Session{
		ID:        history.NewID(),
		Source:    sourceKind,
		StartedAt: startTime,
	}
	if err := repo.CreateSession(context.Background(), session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	sessionLogger := logging.WithSessionID(logger, session.ID)
	sessionLogger.Info("session started", "source", sourceKind)

	history.NewRecorder(repo, session.ID, sessionLogger).Attach(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := eng.Run(ctx); err != nil {
			logger.Error("engine stopped with error", "error", err)
		}
	}()

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Engine:     eng,
		Store:      store,
		Repository: repo,
		Doctor:     doctor,
		SessionID:  session.ID,
		SourceKind: sourceKind,
		Logger:     logging.WithComponent(logger, "api"),
		StartTime:  startTime,
		DeviceID:   deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Engine: eng,
			Store:  store,
			Logger: logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	if closer != nil {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close frame source", "error", err)
		}
	}

	// The engine's teardown flush (and the recorder writes it triggers)
	// must land before the session is ended and the DB handle closes.
	select {
	case <-engineDone:
	case <-time.After(10 * time.Second):
		logger.Error("engine did not stop in time, proceeding with shutdown")
	}

	if err := repo.EndSession(context.Background(), session.ID, time.Now()); err != nil {
		logger.Error("failed to end session", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	sessionLogger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo history.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo history.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
