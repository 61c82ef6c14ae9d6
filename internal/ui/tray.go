package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/repmeter/repmeter-agent/internal/counter"
	"github.com/repmeter/repmeter-agent/internal/detect"
	"github.com/repmeter/repmeter-agent/internal/engine"
)

type Tray struct {
	engine *engine.Engine
	store  *counter.Store
	logger *slog.Logger

	statusItem *systray.MenuItem
	totalItem  *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu sync.Mutex

	onQuit func()
}

type TrayConfig struct {
	Engine *engine.Engine
	Store  *counter.Store
	Logger *slog.Logger
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		engine: cfg.Engine,
		store:  cfg.Store,
		logger: cfg.Logger,
		onQuit: cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("RepMeter")
	systray.SetTooltip("RepMeter Agent")

	t.statusItem = systray.AddMenuItem("Status: Counting", "Current agent status")
	t.statusItem.Disable()

	t.totalItem = systray.AddMenuItem("Reps: 0", "Total reps this session")
	t.totalItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause", "Pause counting")

	resetItem := systray.AddMenuItem("Reset Counts", "Zero all exercise counts")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit RepMeter Agent")

	// Published count changes drive the reps line.
	t.store.Subscribe(func(e detect.Exercise, count int) {
		t.updateTotal()
	})

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-resetItem.ClickedCh:
				t.handleReset()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.engine == nil {
		return
	}

	if t.engine.IsPaused() {
		t.engine.Resume()
		t.pauseItem.SetTitle("Pause")
		t.statusItem.SetTitle("Status: Counting")
	} else {
		t.engine.Pause()
		t.pauseItem.SetTitle("Resume")
		t.statusItem.SetTitle("Status: Paused")
	}
}

func (t *Tray) handleReset() {
	if t.engine == nil {
		return
	}
	t.engine.Reset()
	t.logger.Info("counts reset from tray")
}

func (t *Tray) updateTotal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.totalItem == nil {
		return
	}
	t.totalItem.SetTitle(fmt.Sprintf("Reps: %d", t.store.Total()))
}

func (t *Tray) Quit() {
	systray.Quit()
}
