package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/channel"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/config"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/httpapi"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/hub"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/journal"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/logging"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/metrics"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/session"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/snapshot"
)

const version = "0.1.0"

const usage = `TMDB match desk.

Keeps a live replica of a tournament's team matches and serves it to ring
and holding-area displays.

Usage:
    matchdesk serve [--env=<file>] [--addr=<addr>] [--slug=<slug>...]
    matchdesk journal [--env=<file>] <session_id>
    matchdesk -h | --help
    matchdesk --version

Options:
    -h --help        Show this screen.
    --version        Show version.
    --env=<file>     Environment file to load [default: .env].
    --addr=<addr>    Listen address; overrides HTTP_ADDR.
    --slug=<slug>    Start a session for this tournament at boot.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	envFile, _ := opts.String("--env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", envFile, err)
		os.Exit(1)
	}

	if isJournal, _ := opts.Bool("journal"); isJournal {
		id, _ := opts.String("<session_id>")
		err = dumpJournal(id)
	} else {
		err = serve(opts)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(opts docopt.Opts) (err error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if addr, _ := opts.String("--addr"); addr != "" {
		cfg.HTTPAddr = addr
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	jr, err := journal.Open(cfg.JournalDSN)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, jr.Close()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, sessionFactory(cfg, jr, m, log), log)

	slugs, _ := opts["--slug"].([]string)
	for _, slug := range slugs {
		if _, err := h.Ensure(ctx, slug); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(h, reg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("tmdb", cfg.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if herr := h.Shutdown(shutdownCtx); !errors.Is(herr, hub.ErrHubClosed) {
			err = multierr.Append(err, herr)
		}
		return err
	})
	return g.Wait()
}

func sessionFactory(cfg config.Config, jr journal.Journal, m *metrics.Metrics, log *zap.Logger) hub.Factory {
	tmpl := cfg.SnapshotURL
	if tmpl == "" {
		tmpl = snapshot.URLTemplateFor(cfg.BaseURL)
	}
	dialer := channel.DefaultDialer()

	return func(ctx context.Context, slug string) (*session.Session, error) {
		u, err := channel.MatchUpdatesURL(cfg.BaseURL, slug)
		if err != nil {
			return nil, err
		}
		fetcher := snapshot.NewHTTPFetcher(tmpl)
		fetcher.Client.Timeout = cfg.FetchTimeout

		return session.New(ctx, session.Config{
			Slug:                     slug,
			ChannelURL:               u,
			Dialer:                   dialer,
			Fetcher:                  fetcher,
			Journal:                  jr,
			Metrics:                  m,
			Logger:                   log,
			LostConnectionAlertDelay: cfg.LostConnectionAlertDelay,
			WriteTimeout:             cfg.WriteTimeout,
		}), nil
	}
}

func dumpJournal(sessionID string) (err error) {
	jr, err := journal.Open(os.Getenv("JOURNAL_DSN"))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, jr.Close()) }()

	entries, err := jr.Entries(context.Background(), sessionID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s %6d %-8s %s\n", e.RecordedAt.Format(time.RFC3339Nano), e.Seq, e.Event, e.Payload)
	}
	return nil
}
