package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chimerad/internal/config"
	"chimerad/internal/core"
	"chimerad/internal/httpapi"
	"chimerad/internal/modules"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chimerad",
		Short:         "Modular assistant runtime: event bus, module registry and HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	f := root.Flags()
	f.String("addr", envOr("CHIMERAD_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	f.String("config", os.Getenv("CHIMERAD_CONFIG"), "Optional config file (.yaml/.json/.toml)")
	f.String("fourth-slot", envOr("CHIMERAD_FOURTH_SLOT", "ear"), "Fourth module slot: ear or tentacle")
	f.String("openai-model", os.Getenv("CHIMERAD_OPENAI_MODEL"), "Chat model used by the brain adapter")
	f.String("espeak-voice", os.Getenv("CHIMERAD_ESPEAK_VOICE"), "Voice passed to espeak-ng")
	f.String("log-level", envOr("CHIMERAD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	f.String("cors-origins", os.Getenv("CHIMERAD_CORS_ORIGINS"), "Comma-separated allowed CORS origins (empty disables CORS)")
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	// .env is optional; real environment wins over file values.
	_ = godotenv.Load()

	cfg := config.Config{
		Addr:        flagStr(cmd, "addr"),
		FourthSlot:  flagStr(cmd, "fourth-slot"),
		OpenAIModel: flagStr(cmd, "openai-model"),
		EspeakVoice: flagStr(cmd, "espeak-voice"),
		LogLevel:    flagStr(cmd, "log-level"),
		CORSOrigins: flagStr(cmd, "cors-origins"),
	}
	if path := flagStr(cmd, "config"); path != "" {
		fileCfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = mergeConfig(fileCfg, cfg, cmd)
	}

	logger := newLogger(cfg.LogLevel)

	var completer modules.Completer
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		completer = modules.NewOpenAICompleter(key, cfg.OpenAIModel)
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, brain will report errors when triggered")
	}

	sys := core.New(core.Options{
		Logger:      logger,
		FourthSlot:  cfg.FourthSlot,
		Completer:   completer,
		Synthesizer: modules.EspeakSynthesizer{Voice: cfg.EspeakVoice},
		LogCapacity: cfg.LogCapacity,
	})
	defer sys.Close()

	httpapi.SetLogger(logger)
	if origins := splitCSV(cfg.CORSOrigins); len(origins) > 0 {
		httpapi.SetCORSOptions(true, origins,
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Accept", "Content-Type"})
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(sys)}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("fourth_slot", cfg.FourthSlot).Msg("chimerad listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	// Stop streaming handlers first so Shutdown does not wait on them.
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	return nil
}

// mergeConfig overlays flag values on top of file values. A flag only wins
// when it was set explicitly on the command line.
func mergeConfig(file, flags config.Config, cmd *cobra.Command) config.Config {
	out := file
	if cmd.Flags().Changed("addr") || out.Addr == "" {
		out.Addr = flags.Addr
	}
	if cmd.Flags().Changed("fourth-slot") || out.FourthSlot == "" {
		out.FourthSlot = flags.FourthSlot
	}
	if cmd.Flags().Changed("openai-model") || out.OpenAIModel == "" {
		out.OpenAIModel = flags.OpenAIModel
	}
	if cmd.Flags().Changed("espeak-voice") || out.EspeakVoice == "" {
		out.EspeakVoice = flags.EspeakVoice
	}
	if cmd.Flags().Changed("log-level") || out.LogLevel == "" {
		out.LogLevel = flags.LogLevel
	}
	if cmd.Flags().Changed("cors-origins") || out.CORSOrigins == "" {
		out.CORSOrigins = flags.CORSOrigins
	}
	return out
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func flagStr(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
