package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MicroPhone1/App-HelpPeople/internal/api"
	"github.com/MicroPhone1/App-HelpPeople/internal/config"
	"github.com/MicroPhone1/App-HelpPeople/internal/history"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

	switch cmd {
	case "start":
		cmdStart()
	case "stop":
		cmdStop()
	case "status":
		cmdStatus()
	case "run":
		// Foreground relay server (also used internally by daemon child)
		cmdRun()
	case "sender":
		cmdSender()
	case "watch":
		cmdWatch()
	case "version":
		fmt.Printf("helppeople %s\n", version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, `HelpPeople - Voice-Triggered Caregiver Alert Relay (%s)

Usage:
  %s <command> [flags]

Commands:
  start          Start the relay server as a daemon (background)
  stop           Stop the daemon
  status         Show daemon status
  run            Run the relay server in foreground
  sender         Run the voice-command sender session (reads transcripts from stdin)
  watch          Watch alerts as a caregiver
  version        Print version

Flags:
  -config PATH   Config file path (default: config.yaml)
  -listen ADDR   Listen address (default: :4000)
  -origins LIST  Comma-separated allowed browser origins
  -history N     Alert history capacity (default: 100)
  -production    Disable the destructive DELETE /logs endpoint
  -server URL    Relay websocket URL for sender/watch (default: ws://localhost:4000/ws)
  -pid-file P    PID file path
  -log-file P    Log file path

Examples:
  %s run
  %s start -config /etc/helppeople/config.yaml
  %s sender -server ws://192.168.1.10:4000/ws
  %s watch
`, version, exe, exe, exe, exe, exe)
}

// ---------------------------------------------------------------------------
// run: foreground relay server (also used by daemon child)
// ---------------------------------------------------------------------------

func cmdRun() {
	cfg := config.Load()

	histLog := history.New(cfg.HistorySize)
	hub := api.NewHub(histLog, cfg.Origins)
	router := api.NewRouter(hub, histLog, cfg.Origins, cfg.Production)

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: router,
	}

	ctx, stop := signalContext()
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		log.Printf("HelpPeople %s listening on http://%s", version, displayAddr(cfg.Listen))
		log.Printf("- Health check: http://%s/", displayAddr(cfg.Listen))
		log.Printf("- Alert logs:   http://%s/logs", displayAddr(cfg.Listen))
		log.Printf("- WebSocket:    ws://%s/ws", displayAddr(cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down...")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	// Clean up PID file
	os.Remove(cfg.PidFile)
	log.Println("goodbye")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), shutdownSignals...)
}

// displayAddr makes a bare ":4000" listen address printable.
func displayAddr(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "localhost" + listen
	}
	return listen
}

// ---------------------------------------------------------------------------
// PID file helpers
// ---------------------------------------------------------------------------

func writePidFile(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0644)
}

func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in %s", path)
	}
	return pid, nil
}
