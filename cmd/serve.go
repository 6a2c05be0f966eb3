package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/admit/internal/api"
	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/daemon"
	"github.com/joescharf/admit/internal/engine"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server in the foreground",
	Long: `Start the HTTP server that exposes the review API.
By default it listens on port 8080. Use --port to change it.

Use 'admit serve start' to run it in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)

	serveCmd.PersistentFlags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.PersistentFlags().Lookup("port"))
}

func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "admit-serve.pid"))
}

func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "admit-serve.log")
}

// newAPIServer wires the store, review sessions and analyzer into the API.
func newAPIServer() (*api.Server, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	reg := criteria.Default()

	var opts []api.Option
	if a := newAnalyzer(reg); a != nil {
		opts = append(opts, api.WithAnalyzer(a, textSource()))
	} else {
		log.Warn().Msg("anthropic.api_key not set, analyze endpoint disabled")
	}
	if viper.GetBool("metrics.enabled") {
		opts = append(opts, api.WithMetrics())
	}
	return api.NewServer(s, engine.NewManager(reg), opts...), nil
}

func serveRun(ctx context.Context) error {
	pf := pidFile()
	if err := pf.Acquire(); err != nil {
		return err
	}
	defer func() { _ = pf.Release() }()

	srv, err := newAPIServer()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", viper.GetInt("port"))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	ui.Info("Serving API at http://localhost%s/api/v1", addr)
	log.Info().Str("addr", addr).Msg("server started")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("server already running (pid %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}

	args := []string{"serve", "--port", fmt.Sprint(viper.GetInt("port"))}
	if cfg, _ := rootCmd.PersistentFlags().GetString("config"); cfg != "" {
		args = append(args, "--config", cfg)
	}

	if dryRun {
		ui.DryRunMsg("Would start %s %v (log: %s)", exe, args, serveLogPath())
		return nil
	}

	if err := os.MkdirAll(viper.GetString("state_dir"), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	logFile, err := os.OpenFile(serveLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	child.Env = append(os.Environ(), "ADMIT_LOG_FORMAT=json")
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := child.Process.Release(); err != nil {
		return fmt.Errorf("release server process: %w", err)
	}

	ui.Success("Server started (pid %d), logging to %s", child.Process.Pid, serveLogPath())
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		return fmt.Errorf("server not running")
	}

	if dryRun {
		ui.DryRunMsg("Would stop server (pid %d)", pid)
		return nil
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("signal server: %w", err)
	}

	deadline := time.Now().Add(shutdownTimeout)
	for time.Now().Before(deadline) {
		if _, running := pf.IsRunning(); !running {
			_ = pf.Remove()
			ui.Success("Server stopped (pid %d)", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	ui.Warning("Server did not stop in %s, killing", shutdownTimeout)
	if err := pf.Signal(sigKILL()); err != nil {
		return fmt.Errorf("kill server: %w", err)
	}
	_ = pf.Remove()
	return nil
}

func serveStatusRun() error {
	pid, running := pidFile().IsRunning()
	if !running {
		ui.Info("Server not running")
		return nil
	}
	ui.Success("Server running (pid %d, port %d)", pid, viper.GetInt("port"))
	fmt.Fprintf(ui.Out, "  log: %s\n", serveLogPath())
	return nil
}
