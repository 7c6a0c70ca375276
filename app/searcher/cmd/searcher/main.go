package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/backlinks"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/client"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/config"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/engine"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/logger"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

var (
	configPath string

	num          int
	start        int
	lang         string
	safe         string
	dateRestrict string

	endpoint string
	apiKey   string
	limit    int
)

var rootCmd = &cobra.Command{
	Use:   "searcher",
	Short: "Custom Search compatible search tool",
	Long: `searcher runs queries against DuckDuckGo or SearXNG and prints results
in the Custom Search JSON format.`,
	SilenceUsage: true,
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run one query with the configured backend",
	Long: `Run one query directly against the configured backend, without the gateway.

Examples:
  searcher query "golang generics"
  searcher query -c config.yaml --num 5 --start 6 "rust async"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var backlinksCmd = &cobra.Command{
	Use:   "backlinks <domain>",
	Short: "Find pages mentioning a competitor domain",
	Long: `Query a running gateway with several variations of "<domain>" -site:<domain>,
follow nextPage links and print deduplicated referring pages.`,
	Args: cobra.ExactArgs(1),
	RunE: runBacklinks,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "core config file")

	queryCmd.Flags().IntVar(&num, "num", search.DefaultCount, "number of results (1-10)")
	queryCmd.Flags().IntVar(&start, "start", search.DefaultStart, "1-based index of the first result (1-91)")
	queryCmd.Flags().StringVar(&lang, "lr", "", "language restriction, e.g. lang_en")
	queryCmd.Flags().StringVar(&safe, "safe", "off", "safe search level")
	queryCmd.Flags().StringVar(&dateRestrict, "date-restrict", "", "date restriction, e.g. d7, m1")

	backlinksCmd.Flags().StringVar(&endpoint, "endpoint", "http://127.0.0.1:8000", "gateway address")
	backlinksCmd.Flags().StringVar(&apiKey, "key", os.Getenv("API_KEY"), "gateway api key")
	backlinksCmd.Flags().IntVar(&limit, "limit", 50, "maximum opportunities")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(backlinksCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("无法加载配置文件: %w", err)
		}
		// 没有配置文件时使用默认值
		cfg = (&config.Config{}).WithDefaults()
	}
	if err := logger.InitLogger(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level, err := search.ParseSafeLevel(safe)
	if err != nil {
		return err
	}
	q, err := search.NewQuery(args[0],
		search.WithCount(num),
		search.WithStart(start),
		search.WithLanguage(lang),
		search.WithSafe(level),
		search.WithDateRestrict(dateRestrict),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, cleanup, err := engine.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	env, err := e.Search(ctx, q)
	if err != nil {
		return err
	}
	return printJSON(cmd, env)
}

func runBacklinks(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.New(ctx, endpoint, 60*time.Second)
	if err != nil {
		return fmt.Errorf("create gateway client: %w", err)
	}
	defer c.Close()

	ops, err := backlinks.NewFinder(c, apiKey).Find(ctx, args[0], limit)
	if err != nil {
		return err
	}
	logger.Log.Infof("找到 %d 个外链机会", len(ops))
	return printJSON(cmd, ops)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
