package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"sitewatch/internal/alert"
	"sitewatch/internal/config"
	"sitewatch/internal/logging"
	"sitewatch/internal/models"
	"sitewatch/internal/monitor"
	"sitewatch/internal/server"
	"sitewatch/internal/store"
	"sitewatch/internal/tui"
)

func main() {
	log.SetOutput(io.Discard)

	cfg, err := config.Load(".env", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DBDriver, cfg.DB)
	if err != nil {
		logger.Fatal("store_open_failed", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer st.Close()

	// No script engine ships with the binary; JAVASCRIPT sites report
	// script_evaluator_unavailable until one is plugged in here.
	opts := []monitor.Option{monitor.WithLogger(logger), monitor.WithChecker(monitor.NewChecker(nil))}
	if p := alert.GetProvider(models.AlertConfig{Name: "default", Type: cfg.AlertType, Settings: cfg.AlertSettings}); p != nil {
		opts = append(opts, monitor.WithNotifier(p))
	}
	scheduler := monitor.NewScheduler(st, opts...)
	if err := scheduler.Start(ctx, st); err != nil {
		logger.Fatal("scheduler_start_failed", zap.Error(err))
	}

	var status *server.Server
	if cfg.HTTPPort > 0 {
		status = server.New(server.ServerConfig{Port: cfg.HTTPPort, Title: cfg.StatusTitle}, st, scheduler, logger)
		status.Start()
	}

	sshServer := startSSHServer(cfg, st, scheduler, logger)

	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		p := tea.NewProgram(tui.InitialModel(st, scheduler, logger), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			fmt.Printf("Error: %v\n", err)
		}
	} else {
		fmt.Println("sitewatch running in HEADLESS mode (Background Service)")
		<-ctx.Done()
		fmt.Println("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sshServer != nil {
		sshServer.Shutdown(shutdownCtx)
	}
	if status != nil {
		if err := status.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http_shutdown_error", zap.Error(err))
		}
	}
	scheduler.Stop()
}

func startSSHServer(cfg config.Config, st store.Store, scheduler *monitor.Scheduler, logger *zap.Logger) *ssh.Server {
	s, err := wish.NewServer(
		wish.WithAddress(fmt.Sprintf(":%d", cfg.SSHPort)),
		wish.WithHostKeyPath(cfg.HostKeyPath),

		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			data, err := os.ReadFile(cfg.KeysPath)
			if err != nil {
				return false
			}
			return isKeyAllowed(data, key)
		}),

		wish.WithMiddleware(
			bm.Middleware(func(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
				logger.Info("ssh_session_started", zap.String("user", sess.User()))
				return tui.InitialModel(st, scheduler, logger), []tea.ProgramOption{tea.WithAltScreen()}
			}),
		),
	)
	if err != nil {
		logger.Warn("ssh_server_disabled", zap.Error(err))
		return nil
	}

	go func() {
		logger.Info("ssh_listening", zap.Int("port", cfg.SSHPort))
		if err := s.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
			logger.Error("ssh_serve_error", zap.Error(err))
		}
	}()
	return s
}

func isKeyAllowed(authFileData []byte, incomingKey ssh.PublicKey) bool {
	for len(authFileData) > 0 {
		allowedKey, _, _, rest, err := ssh.ParseAuthorizedKey(authFileData)
		if err != nil {
			authFileData = rest
			continue
		}
		if ssh.KeysEqual(allowedKey, incomingKey) {
			return true
		}
		authFileData = rest
	}
	return false
}
