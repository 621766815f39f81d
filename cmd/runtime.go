package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/dhabedank/promptbench/internal/api"
	"github.com/dhabedank/promptbench/internal/core"
	"github.com/dhabedank/promptbench/internal/llm"
	"github.com/dhabedank/promptbench/internal/logging"
	"github.com/dhabedank/promptbench/internal/output"
	"github.com/dhabedank/promptbench/internal/session"
)

// runtime is what a command needs after config and flags are merged.
type runtime struct {
	config *Config
	logger *zap.SugaredLogger
	client *api.Client
	router *llm.Router
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := logging.New(logging.Options{Verbose: verbose, JSON: logJSON})
	if cfg.Path != "" {
		logger.Debugw("loaded config", "path", cfg.Path)
	}

	client := api.NewClient(api.Config{
		BaseURL:           cfg.APIURL,
		Token:             cfg.Token,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger.Named("api"),
	})

	return &runtime{config: cfg, logger: logger, client: client}, nil
}

// executor returns the backend single calls go to.
func (r *runtime) executor() core.Executor {
	if r.config.Backend == BackendDirect {
		if r.router == nil {
			r.router = llm.NewRouter(llm.Config{
				PreferCLI:       r.config.PreferCLI,
				Model:           r.config.Model,
				AnthropicAPIKey: r.config.AnthropicAPIKey,
				OpenAIAPIKey:    r.config.OpenAIAPIKey,
				GeminiAPIKey:    r.config.GeminiAPIKey,
				MaxTokens:       r.config.MaxTokens,
				Logger:          r.logger.Named("llm"),
			})
		}
		return r.router
	}
	return r.client
}

func (r *runtime) dispatcher() *core.Dispatcher {
	return core.NewDispatcher(r.executor(), core.DispatcherConfig{
		Concurrency: r.config.Concurrency,
		Timeout:     r.config.RequestTimeout,
		Logger:      r.logger.Named("dispatch"),
	})
}

// store returns a store with the caller's identity resolved.
func (r *runtime) store(ctx context.Context) (*api.Store, error) {
	s := api.NewStore(r.client, api.StoreConfig{
		Cache:      session.Config{Size: r.config.CacheSize},
		Controller: session.ControllerConfig{SettleDelay: r.config.SettleDelay},
		Logger:     r.logger.Named("store"),
	})
	user, err := s.Resolve(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	if user == nil {
		r.logger.Debugw("no valid token, continuing anonymously")
	} else {
		r.logger.Debugw("resolved identity", "user_id", user.ID)
	}
	return s, nil
}

func (r *runtime) outputConfig() output.Config {
	cfg := output.DefaultConfig()
	cfg.Path = outputPath
	cfg.Markdown = outputPath == "" && term.IsTerminal(int(os.Stdout.Fd()))
	if cfg.Markdown {
		if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 4 {
			cfg.WrapWidth = width - 4
		}
	}
	return cfg
}

// emit writes report in the configured format.
func (r *runtime) emit(cmd *cobra.Command, report *core.Report) error {
	cfg := r.outputConfig()
	adapter, err := output.New(r.config.Output, cfg)
	if err != nil {
		return err
	}
	return output.Emit(adapter, report, cfg, cmd.OutOrStdout())
}

// interactive reports whether a progress view can be drawn on stderr.
func (r *runtime) interactive() bool {
	return !logJSON && term.IsTerminal(int(os.Stderr.Fd()))
}
