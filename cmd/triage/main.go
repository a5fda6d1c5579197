package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicore/triage-intake/internal/config"
	"github.com/clinicore/triage-intake/internal/decision"
	"github.com/clinicore/triage-intake/internal/observability/metrics"
	"github.com/clinicore/triage-intake/internal/transcribe"
	"github.com/clinicore/triage-intake/internal/triage"
	"github.com/clinicore/triage-intake/internal/tui"
	"github.com/clinicore/triage-intake/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// The TUI owns stdout; logs go to a file when configured, otherwise
	// they are discarded to keep the screen clean.
	var logWriter io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logWriter = f
	}
	logger := logging.NewWithWriter(logWriter, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting triage intake client", "env", cfg.Env, "api", cfg.APIBaseURL)

	triageMetrics := metrics.NewTriageMetrics(nil)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, promhttp.Handler()); err != nil {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	client := decision.NewClient(cfg.APIBaseURL,
		decision.WithTokenProvider(decision.StaticToken(cfg.APIBearerToken)),
		decision.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}),
		decision.WithLogger(logger),
	)

	orch := triage.New(client, client,
		triage.WithLogger(logger),
		triage.WithMetrics(triageMetrics),
		triage.WithMaxAutoHops(cfg.MaxAutoHops),
		triage.WithMirrorQueueSize(cfg.MirrorQueueSize),
	)
	defer orch.Close()

	var feed *transcribe.Feed
	if cfg.TranscribeFeedURL != "" {
		feed = transcribe.NewFeed(cfg.TranscribeFeedURL, transcribe.WithLogger(logger))
		defer feed.Stop()
	}

	program := tea.NewProgram(tui.NewModel(orch, feed), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "triage: %v\n", err)
		os.Exit(1)
	}
}
