// Package cli implements the memori CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vishalbelsare/memori-sub000/internal/classify"
	"github.com/vishalbelsare/memori-sub000/internal/config"
	"github.com/vishalbelsare/memori-sub000/internal/llm"
	"github.com/vishalbelsare/memori-sub000/internal/logging"
	"github.com/vishalbelsare/memori-sub000/internal/manager"
	"github.com/vishalbelsare/memori-sub000/internal/metrics"
	"github.com/vishalbelsare/memori-sub000/internal/plan"
	"github.com/vishalbelsare/memori-sub000/internal/store"
)

var (
	configPath string
	dbPath     string
	nsFlag     string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memori",
	Short: "Conversation memory with hybrid search",
	Long: "Record conversations, keep the parts worth remembering, and search them again.\n" +
		"SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $MEMORI_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MEMORI_DB or ~/.memori/memori.db)")
	RootCmd.PersistentFlags().StringVarP(&nsFlag, "ns", "n", "", "Namespace (default: $MEMORI_NAMESPACE or \"default\")")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("MEMORI_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if nsFlag != "" {
		cfg.Namespace = nsFlag
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// app holds what a command needs once the config is resolved.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics metrics.Collector
	store   *store.SQLiteStore
}

func openApp(mc metrics.Collector) *app {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	if mc == nil {
		mc = metrics.NewNoopCollector()
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	s, err := store.Open(cfg.DBPath, store.Options{
		Driver:          cfg.Driver,
		DisableFullText: cfg.DisableFullText,
		Logger:          logger,
		Metrics:         mc,
	})
	if err != nil {
		exitErr("open store", err)
	}
	return &app{cfg: cfg, logger: logger, metrics: mc, store: s}
}

func (a *app) Close() { a.store.Close() }

func (a *app) ns() string { return a.cfg.Namespace }

func (a *app) manager() *manager.Manager {
	classifier, intent, err := newClassifiers(a.cfg.Classifier)
	if err != nil {
		exitErr("classifier", err)
	}
	searchOpts := a.cfg.SearchOptions()
	searchOpts.Logger = a.logger
	searchOpts.Metrics = a.metrics
	return manager.New(a.store, manager.Options{
		Namespace:  a.cfg.Namespace,
		Classifier: classifier,
		Resolver: plan.NewResolver(plan.Options{
			Intent:   intent,
			CacheTTL: a.cfg.Planner.CacheTTL,
			Logger:   a.logger,
		}),
		Search:  searchOpts,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
}

// newClassifiers builds the exchange classifier and the query intent
// classifier for a provider. The heuristic provider has no intent
// classifier, so queries use fallback plans.
func newClassifiers(cfg config.ClassifierConfig) (classify.Classifier, classify.IntentClassifier, error) {
	opts := llm.Options{Model: cfg.Model, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL}
	var c llm.Completer
	switch cfg.Provider {
	case "", config.ProviderHeuristic:
		return classify.NewHeuristic(), nil, nil
	case config.ProviderOpenAI:
		c = llm.NewOpenAI(opts)
	case config.ProviderAnthropic:
		c = llm.NewAnthropic(opts)
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("%s provider needs an API key", cfg.Provider)
	}
	return classify.NewExternal(c), classify.NewExternalIntent(c), nil
}

// readArgsOrStdin joins args, or reads piped stdin when there are none.
func readArgsOrStdin(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
