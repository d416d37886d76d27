// Command flextranslator is a real-time speech translation client for the
// terminal. It streams microphone audio to the Gemini Live API, plays the
// synthesized interpretation back, and keeps a dual transcript of everything
// said in both languages.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/juanan28s/flextranslator/internal/config"
	"github.com/juanan28s/flextranslator/internal/health"
	"github.com/juanan28s/flextranslator/internal/observe"
	"github.com/juanan28s/flextranslator/internal/prompt"
	"github.com/juanan28s/flextranslator/internal/resilience"
	"github.com/juanan28s/flextranslator/internal/transcript"
	"github.com/juanan28s/flextranslator/internal/transcript/store"
	"github.com/juanan28s/flextranslator/internal/translator"
	"github.com/juanan28s/flextranslator/pkg/audio/portaudio"
	"github.com/juanan28s/flextranslator/pkg/provider/live"
	geminilive "github.com/juanan28s/flextranslator/pkg/provider/live/gemini"
	"github.com/juanan28s/flextranslator/pkg/provider/oneshot"
	geminiflash "github.com/juanan28s/flextranslator/pkg/provider/oneshot/gemini"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "flextranslator: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "flextranslator: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("flextranslator starting",
		"config", *configPath,
		"metrics_addr", cfg.Server.MetricsAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Audio host ────────────────────────────────────────────────────────────
	host, err := portaudio.NewHost()
	if err != nil {
		slog.Error("failed to initialise audio", "err", err)
		return 1
	}
	defer func() {
		if err := host.Terminate(); err != nil {
			slog.Warn("audio shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	var liveProvider live.Provider
	var generator oneshot.Generator
	if cfg.Gemini.APIKey != "" {
		var liveOpts []geminilive.Option
		if cfg.Gemini.LiveModel != "" {
			liveOpts = append(liveOpts, geminilive.WithModel(cfg.Gemini.LiveModel))
		}
		if cfg.Gemini.LiveBaseURL != "" {
			liveOpts = append(liveOpts, geminilive.WithBaseURL(cfg.Gemini.LiveBaseURL))
		}
		liveProvider = geminilive.New(cfg.Gemini.APIKey, liveOpts...)

		generator = newGenerator(cfg.Gemini)
	} else {
		slog.Warn("no Gemini API key configured, translation is disabled")
	}

	// ── Transcript store (optional) ───────────────────────────────────────────
	var st *store.Store
	if cfg.Transcript.StorePath != "" {
		st, err = store.Open(cfg.Transcript.StorePath)
		if err != nil {
			slog.Error("failed to open transcript store", "err", err, "path", cfg.Transcript.StorePath)
			return 1
		}
		defer func() {
			if err := st.Close(); err != nil {
				slog.Warn("transcript store close error", "err", err)
			}
		}()
	}

	// ── Coordinator ───────────────────────────────────────────────────────────
	coord := translator.New(translator.Config{
		Live:            liveProvider,
		Generator:       generator,
		Host:            host,
		Store:           st,
		ReleaseDelay:    time.Duration(cfg.Audio.ReleaseDelayMS) * time.Millisecond,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
	})
	defer coord.Disconnect()

	g, gctx := errgroup.WithContext(ctx)

	// ── Metrics and health server (optional) ──────────────────────────────────
	if cfg.Server.MetricsAddr != "" {
		srv := newMetricsServer(cfg.Server.MetricsAddr, st)
		g.Go(func() error {
			slog.Info("metrics server listening", "addr", cfg.Server.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// ── Command loop ──────────────────────────────────────────────────────────
	printBanner()
	g.Go(func() error {
		commandLoop(gctx, coord, st)
		stop()
		return nil
	})

	err = g.Wait()
	coord.Disconnect()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// newGenerator builds the one-shot translation backend. When fallback models
// are configured, each one gets its own circuit breaker and the chain fails
// over automatically.
func newGenerator(cfg config.GeminiConfig) oneshot.Generator {
	build := func(model string) *geminiflash.Generator {
		var opts []geminiflash.Option
		if model != "" {
			opts = append(opts, geminiflash.WithModel(model))
		}
		if cfg.RESTBaseURL != "" {
			opts = append(opts, geminiflash.WithBaseURL(cfg.RESTBaseURL))
		}
		return geminiflash.New(cfg.APIKey, opts...)
	}

	primary := build(cfg.FlashModel)
	if len(cfg.FlashFallbackModels) == 0 {
		return primary
	}

	primaryName := cfg.FlashModel
	if primaryName == "" {
		primaryName = "default"
	}
	fb := resilience.NewGeneratorFallback(primary, primaryName, resilience.FallbackConfig{})
	for _, model := range cfg.FlashFallbackModels {
		fb.AddFallback(model, build(model))
	}
	return fb
}

// newMetricsServer builds the HTTP server exposing /metrics, /healthz, and
// /readyz. The readiness check probes the transcript store when one is open.
func newMetricsServer(addr string, st *store.Store) *http.Server {
	var checkers []health.Checker
	if st != nil {
		checkers = append(checkers, health.Checker{Name: "transcript_store", Check: st.Ping})
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(checkers...).Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Command loop ──────────────────────────────────────────────────────────────

// commandLoop reads commands from stdin until EOF, "quit", or ctx cancel.
func commandLoop(ctx context.Context, coord *translator.Coordinator, st *store.Store) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		if ctx.Err() != nil {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			printHelp()

		case "connect":
			cmdConnect(ctx, coord, args)

		case "disconnect":
			coord.Disconnect()
			fmt.Println("disconnected")

		case "pause":
			if err := coord.TogglePause(ctx); err != nil {
				fmt.Println("error:", err)
			} else if coord.Paused() {
				fmt.Println("microphone paused")
			} else {
				fmt.Println("microphone live")
			}

		case "mute":
			if coord.ToggleLiveOutput() {
				fmt.Println("speech output on")
			} else {
				fmt.Println("speech output off")
			}

		case "context":
			cmdContext(ctx, coord, args)

		case "say":
			cmdSay(ctx, coord, strings.Join(args, " "))

		case "edit":
			cmdEdit(ctx, coord, args)

		case "log":
			printTurns(coord.Turns())

		case "sessions":
			cmdSessions(ctx, st)

		case "langs":
			for _, l := range prompt.SupportedLanguages {
				fmt.Printf("  %-4s %s\n", l.Code, l.Name)
			}

		case "contexts":
			for _, c := range prompt.Contexts {
				fmt.Printf("  %-14s %s\n", c.ID, c.Label)
			}

		case "status":
			fmt.Println("state:", coord.State())
			if err := coord.Err(); err != nil {
				fmt.Println("error:", err)
			}

		case "quit", "exit":
			return

		default:
			fmt.Printf("unknown command %q, try \"help\"\n", cmd)
		}
	}
}

func cmdConnect(ctx context.Context, coord *translator.Coordinator, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: connect <langA> <langB> [context]")
		return
	}
	langA, ok := prompt.LanguageByCode(args[0])
	if !ok {
		fmt.Printf("unknown language %q, try \"langs\"\n", args[0])
		return
	}
	langB, ok := prompt.LanguageByCode(args[1])
	if !ok {
		fmt.Printf("unknown language %q, try \"langs\"\n", args[1])
		return
	}
	contextID := "general"
	if len(args) > 2 {
		if _, ok := prompt.ContextByID(args[2]); !ok {
			fmt.Printf("unknown context %q, try \"contexts\"\n", args[2])
			return
		}
		contextID = args[2]
	}

	if err := coord.Connect(ctx, langA, langB, contextID); err != nil {
		fmt.Println("connect failed:", err)
		return
	}
	fmt.Printf("interpreting %s <-> %s (%s)\n", langA.Name, langB.Name, contextID)
}

func cmdContext(ctx context.Context, coord *translator.Coordinator, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: context <id>")
		return
	}
	if _, ok := prompt.ContextByID(args[0]); !ok {
		fmt.Printf("unknown context %q, try \"contexts\"\n", args[0])
		return
	}
	if err := coord.ChangeContext(ctx, args[0]); err != nil {
		fmt.Println("context change failed:", err)
		return
	}
	fmt.Println("context set to", args[0])
}

func cmdSay(ctx context.Context, coord *translator.Coordinator, text string) {
	if text == "" {
		fmt.Println("usage: say <text>")
		return
	}
	id, err := coord.TranslateText(ctx, text, nil)
	if err != nil {
		fmt.Println("translation failed:", err)
		return
	}
	if turn, ok := findTurn(coord.Turns(), id); ok {
		printTurn(turn)
	}
}

func cmdEdit(ctx context.Context, coord *translator.Coordinator, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: edit <turn-id> <text>")
		return
	}
	id := args[0]
	if err := coord.UpdateTurn(ctx, id, strings.Join(args[1:], " ")); err != nil {
		fmt.Println("edit failed:", err)
		return
	}
	if turn, ok := findTurn(coord.Turns(), id); ok {
		printTurn(turn)
	}
}

func cmdSessions(ctx context.Context, st *store.Store) {
	if st == nil {
		fmt.Println("no transcript store configured")
		return
	}
	sessions, err := st.Sessions(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if len(sessions) == 0 {
		fmt.Println("no saved sessions")
		return
	}
	for _, s := range sessions {
		fmt.Printf("  %s  %s<->%s  %-12s  %s\n",
			s.ID, s.LangA, s.LangB, s.ContextID, s.StartedAt.Format(time.RFC3339))
	}
}

func findTurn(turns []transcript.Turn, id string) (transcript.Turn, bool) {
	for _, t := range turns {
		if t.ID == id {
			return t, true
		}
	}
	return transcript.Turn{}, false
}

func printTurns(turns []transcript.Turn) {
	if len(turns) == 0 {
		fmt.Println("transcript is empty")
		return
	}
	for _, t := range turns {
		printTurn(t)
	}
}

func printTurn(t transcript.Turn) {
	marker := " "
	if t.Updating {
		marker = "~"
	} else if !t.Final {
		marker = "*"
	}
	fmt.Printf("%s [%s] %s (%s)\n", marker, t.ID[:8], t.SourceText, t.SourceLang)
	if t.Translation != "" {
		fmt.Printf("      -> %s\n", t.Translation)
	}
	if t.Transliteration != "" {
		fmt.Printf("      ~~ %s\n", t.Transliteration)
	}
}

// ── Banner and help ───────────────────────────────────────────────────────────

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      Flex Translator — live voice     ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println(`type "help" for commands`)
}

func printHelp() {
	fmt.Println(`commands:
  connect <langA> <langB> [context]  start a live session
  disconnect                         end the session
  pause                              toggle the microphone
  mute                               toggle spoken output
  context <id>                       switch interpretation context
  say <text>                         translate typed text
  edit <turn-id> <text>              re-translate a logged turn
  log                                show the transcript
  sessions                           list saved sessions
  langs                              list supported languages
  contexts                           list interpretation contexts
  status                             show connection state
  quit                               exit`)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
