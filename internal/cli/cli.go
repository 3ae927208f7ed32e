// Package cli wires the scout together and exposes the run and schedule
// commands.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/gate"
	"github.com/raptor-ai/event-scout/internal/logger"
	"github.com/raptor-ai/event-scout/internal/notify"
	"github.com/raptor-ai/event-scout/internal/register"
	"github.com/raptor-ai/event-scout/internal/score"
	"github.com/raptor-ai/event-scout/internal/scout"
	"github.com/raptor-ai/event-scout/internal/semantic"
	"github.com/raptor-ai/event-scout/internal/source"
	"github.com/raptor-ai/event-scout/internal/store"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitPartial = 2
)

var (
	flagConfig  string
	flagStore   string
	flagDryRun  bool
	flagVerbose bool
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event-scout",
		Short: "Autonomous event scout for regional business and tech events",
		Long: `Discovers business and tech events around the target cities, scores
them for relevance, auto-registers for qualifying free events under a weekly
budget and sends a digest of what it found.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config (defaults apply if omitted)")
	cmd.PersistentFlags().StringVar(&flagStore, "store", "", "Override the state database path")
	cmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "Print registrations and digests instead of sending")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newRunCmd(), newScheduleCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one discovery cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, st, _, err := buildScout()
			if err != nil {
				return err
			}
			defer st.Close()

			summary, err := s.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Cycle complete: %d fetched, %d new, %d registered (budget %d used)\n",
				summary.Fetched, summary.Fresh, summary.Registered, summary.CapUsed)
			if summary.Partial() {
				for _, f := range summary.SourceFailures {
					fmt.Fprintf(os.Stderr, "source failure: %s\n", f)
				}
				if summary.DigestFailure != "" {
					fmt.Fprintf(os.Stderr, "digest failure: %s\n", summary.DigestFailure)
				}
				if summary.Deferred > 0 {
					fmt.Fprintf(os.Stderr, "deferred: %d candidates carried to the next cycle\n", summary.Deferred)
				}
				os.Exit(ExitPartial)
			}
			return nil
		},
	}
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run continuously, one cycle per week at the configured anchor",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, st, cfg, err := buildScout()
			if err != nil {
				return err
			}
			defer st.Close()

			scheduler, err := scout.NewScheduler(s, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info("scheduler stopped", nil)
			return nil
		},
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagStore != "" {
		cfg.StorePath = flagStore
	}
	if flagDryRun {
		cfg.Registration.DryRun = true
		cfg.Notify.DryRun = true
	}
	if flagVerbose {
		cfg.LogLevel = "DEBUG"
	}
	return cfg, nil
}

func buildScout() (*scout.Scout, *store.Store, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, cfg, err
	}
	secrets := config.SecretsFromEnv()

	logger.SetDefault(logger.New(logger.ParseLevel(cfg.LogLevel), os.Stderr))

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, nil, cfg, fmt.Errorf("opening state store: %w", err)
	}

	sources, err := source.FromConfig(cfg.Sources)
	if err != nil {
		st.Close()
		return nil, nil, cfg, err
	}

	assessor := semantic.NewGroq(cfg.Semantic, secrets.GroqAPIKey)
	if !assessor.Available() {
		logger.Warn("no LLM API key configured, semantic scoring disabled", nil)
	}
	scorer := score.New(assessor, cfg)

	var registrar register.Registrar
	if cfg.Registration.DryRun {
		registrar = register.NewDryRun()
	} else {
		registrar = register.NewHTTP(cfg.Registration)
	}
	gatekeeper := gate.New(registrar, st, cfg)

	dispatcher := notify.NewDispatcher(st, buildChannels(cfg, secrets)...)

	return scout.New(cfg, sources, scorer, gatekeeper, dispatcher, st), st, cfg, nil
}

// buildChannels assembles every enabled digest channel. Channels whose
// credentials are missing are skipped with a warning rather than failing the
// run; the dry-run printer is the fallback when nothing else is configured.
func buildChannels(cfg config.Config, secrets config.Secrets) []notify.Channel {
	if cfg.Notify.DryRun {
		return []notify.Channel{notify.NewDryRun()}
	}

	var channels []notify.Channel
	if cfg.Notify.Telegram.Enabled {
		ch, err := notify.NewTelegram(secrets.TelegramToken, secrets.TelegramChatID)
		if err != nil {
			logger.Warn("telegram channel disabled", logger.Fields{"error": err.Error()})
		} else {
			channels = append(channels, ch)
		}
	}
	if cfg.Notify.Email.Enabled {
		ch, err := notify.NewEmail(cfg.Notify.Email, secrets.EmailPassword)
		if err != nil {
			logger.Warn("email channel disabled", logger.Fields{"error": err.Error()})
		} else {
			channels = append(channels, ch)
		}
	}
	if cfg.Notify.Twitter.Enabled {
		ch, err := notify.NewTwitter(secrets)
		if err != nil {
			logger.Warn("twitter channel disabled", logger.Fields{"error": err.Error()})
		} else {
			channels = append(channels, ch)
		}
	}
	if len(channels) == 0 {
		channels = append(channels, notify.NewDryRun())
	}
	// Always leave a copy on disk next to the state database.
	if cfg.StorePath != ":memory:" {
		ch, err := notify.NewFile(filepath.Dir(cfg.StorePath))
		if err != nil {
			logger.Warn("file channel disabled", logger.Fields{"error": err.Error()})
		} else {
			channels = append(channels, ch)
		}
	}
	return channels
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
