package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"leadscout/internal/config"
	"leadscout/internal/crawl"
	"leadscout/internal/domain"
	"leadscout/internal/events"
	"leadscout/internal/geo"
	"leadscout/internal/httpapi"
	"leadscout/internal/logx"
	"leadscout/internal/qualify"
	"leadscout/internal/scrape/fetch"
	"leadscout/internal/secrets"
	"leadscout/internal/store"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const usage = `usage: leadscout <command> [flags]

commands:
  crawl              scrape the directory into the raw sheet
  qualify            geocode the raw sheet and append qualified leads
  run                crawl, then qualify
  store-credentials  copy a service-account JSON key into the OS keychain

flags:
  -data-dir dir      where config.yml, logs and local sinks live (env LEADSCOUT_DATA_DIR)
  -config path       config file (default <data-dir>/config.yml)
  -env path          .env file to load (default .env)
  -pages n           override crawl.pages
  -backend name      override sink.backend
  -key path          service-account JSON (store-credentials only)
  -listen addr       serve /health, /status and /events (SSE) while running
`

type app struct {
	cfg     config.Config
	dataDir string
	log     *zap.Logger
	hub     *events.Hub
	group   store.Group
	tracker *httpapi.Tracker
	stdout  io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	stdout = &lockedWriter{w: stdout}
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	cmd := args[0]
	switch cmd {
	case "crawl", "qualify", "run", "store-credentials":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data-dir", os.Getenv("LEADSCOUT_DATA_DIR"), "")
	cfgPath := fs.String("config", "", "")
	envFile := fs.String("env", ".env", "")
	pages := fs.Int("pages", 0, "")
	backend := fs.String("backend", "", "")
	keyPath := fs.String("key", "", "")
	listen := fs.String("listen", "", "")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *dataDir == "" {
		*dataDir = "."
	}
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	cfg, err := loadConfig(*dataDir, *cfgPath, *envFile)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *pages > 0 {
		cfg.Crawl.Pages = *pages
	}
	if *backend != "" {
		cfg.Sink.Backend = *backend
	}

	if cmd == "store-credentials" {
		if err := secrets.StoreSheetsCredentials(cfg.Sink.Sheets.KeyringAccount, *keyPath); err != nil {
			fmt.Fprintf(stderr, "store credentials: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "credentials stored in keychain (service=%s account=%s)\n",
			secrets.KeyringService, cfg.Sink.Sheets.KeyringAccount)
		return 0
	}

	cfg, v := config.NormalizeAndValidate(cfg)
	for _, w := range v.Warnings {
		fmt.Fprintf(stderr, "config warning: %s\n", w)
	}
	if !v.OK() {
		fmt.Fprintf(stderr, "config invalid:\n- %s\n", strings.Join(v.Errors, "\n- "))
		return 1
	}

	logCfg := cfg.Log
	logCfg.File = inDataDir(*dataDir, logCfg.File)
	log, restore, err := logx.Install(logCfg)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer restore()

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	log.Info("leadscout: starting", zap.String("command", cmd), zap.String("backend", cfg.Sink.Backend))

	group, err := openSink(ctx, cfg, *dataDir)
	if err != nil {
		log.Error("leadscout: open sink", zap.Error(err))
		fmt.Fprintf(stderr, "open sink: %v\n", err)
		return 1
	}
	defer group.Close()

	a := &app{
		cfg:     cfg,
		dataDir: *dataDir,
		log:     log,
		hub:     events.NewHub().WithRequestID(runID),
		group:   group,
		tracker: httpapi.NewTracker(runID, cmd),
		stdout:  stdout,
	}
	stopPrinter := a.printProgress()
	defer stopPrinter()
	stopTracker := a.tracker.Follow(a.hub)
	defer stopTracker()

	if *listen != "" {
		stopServer, err := a.serve(*listen)
		if err != nil {
			log.Error("leadscout: listen", zap.String("addr", *listen), zap.Error(err))
			fmt.Fprintf(stderr, "listen: %v\n", err)
			return 1
		}
		defer stopServer()
	}

	switch cmd {
	case "crawl":
		err = a.crawl(ctx)
	case "qualify":
		err = a.qualify(ctx)
	case "run":
		if err = a.crawl(ctx); err == nil {
			err = a.qualify(ctx)
		}
	}
	stopTracker()
	a.tracker.Finish(err)
	if err != nil {
		log.Error("leadscout: failed", zap.Error(err))
		stopPrinter()
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func loadConfig(dataDir, cfgPath, envFile string) (config.Config, error) {
	if cfgPath == "" {
		p, err := config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
		if err != nil {
			return config.Config{}, eris.Wrap(err, "bootstrap config")
		}
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, eris.Wrapf(err, "load %s", cfgPath)
	}
	if err := config.OverlayEnv(&cfg, envFile, filepath.Join(dataDir, ".env")); err != nil {
		return cfg, eris.Wrap(err, "load env")
	}
	return cfg, nil
}

// inDataDir resolves relative paths against the data dir.
func inDataDir(dataDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}

func openSink(ctx context.Context, cfg config.Config, dataDir string) (store.Group, error) {
	sink := cfg.Sink
	sink.SQLite.Path = inDataDir(dataDir, sink.SQLite.Path)
	sink.CSV.Dir = inDataDir(dataDir, sink.CSV.Dir)

	var opts []option.ClientOption
	if sink.Backend == "sheets" {
		sheetsCfg := sink.Sheets
		sheetsCfg.CredentialsFile = inDataDir(dataDir, sheetsCfg.CredentialsFile)
		creds, err := secrets.SheetsCredentials(sheetsCfg)
		switch {
		case err == nil:
			opts = append(opts, option.WithCredentialsJSON(creds))
		case errors.Is(err, secrets.ErrNoCredentials):
			// fall through to Application Default Credentials
		default:
			return nil, err
		}
	}
	return store.Open(ctx, sink, opts...)
}

func (a *app) crawl(ctx context.Context) error {
	a.tracker.SetPhase("crawl")
	c := a.cfg.Crawl
	f := fetch.New(fetch.Options{
		UserAgent:     a.cfg.Fetch.UserAgent,
		Timeout:       a.cfg.Fetch.Timeout(),
		Attempts:      a.cfg.Fetch.Attempts,
		BackoffBase:   a.cfg.Fetch.BackoffBase(),
		RespectRobots: a.cfg.Fetch.RespectRobots,
	}, a.log)

	name := a.cfg.Sink.RawSheet
	persister := store.NewBatchPersister(name, a.group.Sheet(name), store.RawHeader, a.log)

	crawler := crawl.New(crawl.Options{
		BaseURL:     c.BaseURL,
		Pages:       c.Pages,
		FlushEvery:  c.FlushEveryPages,
		DetailDelay: c.DetailDelay(),
		Workers:     c.Workers,
		SinkName:    name,
	}, f, persister, a.hub, a.log)

	st, err := crawler.Run(ctx)
	fmt.Fprintf(a.stdout, "crawl: %d pages, %d records, %d failed, %d rows written to %s\n",
		st.Pages, st.Records, st.Failed, st.Written, name)
	return err
}

func (a *app) qualify(ctx context.Context) error {
	a.tracker.SetPhase("qualify")
	g := a.cfg.Geocoder
	failures := geo.NewFailureLog(inDataDir(a.dataDir, g.FailureLog))
	geocoder := geo.NewNominatim(geo.NominatimOptions{
		BaseURL:     g.BaseURL,
		UserAgent:   g.UserAgent,
		Email:       g.Email,
		Attempts:    g.Attempts,
		Timeout:     g.Timeout(),
		MinInterval: g.MinInterval(),
	}, failures, a.log)

	q := a.cfg.Qualify
	landmarks := make([]domain.Landmark, 0, len(q.Landmarks))
	for _, l := range q.Landmarks {
		landmarks = append(landmarks, domain.Landmark{Name: l.Name, Point: domain.GeoPoint{Lat: l.Lat, Lon: l.Lon}})
	}
	qualifier := geo.NewQualifier(landmarks, geo.QualifierOptions{
		ThresholdMiles: q.ThresholdMiles,
		LandmarkKind:   q.LandmarkKind,
		States:         q.States,
	})

	src, dst := a.cfg.Sink.RawSheet, a.cfg.Sink.QualifiedSheet
	sink := store.NewBatchPersister(dst, a.group.Sheet(dst), store.QualifiedHeader, a.log)
	pass := qualify.New(src, a.group.Sheet(src), sink, geocoder, qualifier, a.hub, a.log)

	st, err := pass.Run(ctx)
	fmt.Fprintf(a.stdout, "qualify: %d rows, %d qualified, %d not found, %d out of range, %d without location\n",
		st.Rows, st.Qualified, st.NotFound, st.NotQualified, st.Skipped)
	return err
}

// serve exposes the progress endpoints on addr until the returned func is
// called.
func (a *app) serve(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, eris.Wrapf(err, "listen %s", addr)
	}
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	srv := &http.Server{
		BaseContext: func(net.Listener) context.Context { return baseCtx },
		Handler: httpapi.NewHandler(httpapi.Deps{
			Hub:     a.hub,
			Tracker: a.tracker,
			Log:     a.log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http: serve", zap.Error(err))
		}
	}()
	a.log.Info("http: listening", zap.String("addr", ln.Addr().String()))
	fmt.Fprintf(a.stdout, "progress server on http://%s\n", ln.Addr())

	return func() {
		// open SSE streams would otherwise hold Shutdown until the timeout
		cancelStreams()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// printProgress writes one line per hub event until the returned func is
// called. Calling it twice is fine.
func (a *app) printProgress() func() {
	ch := a.hub.Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for msg := range ch {
			e, err := events.Parse(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(a.stdout, "[%s] %s\n", e.Type, string(e.Data))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.hub.Unsubscribe(ch)
			wg.Wait()
		})
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
