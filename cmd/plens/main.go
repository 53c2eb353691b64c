package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pixelens/internal/agent"
	"pixelens/internal/config"
	"pixelens/internal/logger"
	"pixelens/internal/report"
	"pixelens/internal/storage"
	"pixelens/pkg/api"
	"pixelens/pkg/model"
)

var (
	flagConfig      string
	flagTestCase    string
	flagTimeout     int
	flagSettle      int
	flagHeadless    bool
	flagDevtoolsURL string
	flagAgentURL    string
	flagSave        string
	flagStore       string
	flagLogLevel    string
)

var rootCmd = &cobra.Command{
	Use:          "plens",
	Short:        "Validate tracking pixels across scripted web journeys",
	Long:         "plens drives a browser through configured journey steps and verifies that the expected analytics and ads beacons fire with the expected parameters.",
	Version:      "0.1.0",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	_ = godotenv.Load()

	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to the YAML journey configuration (required)")
	rootCmd.Flags().StringVarP(&flagTestCase, "test-case", "t", "", "test case name (runs all when omitted)")
	rootCmd.Flags().IntVar(&flagTimeout, "timeout", 0, "navigation timeout in seconds (overrides config)")
	rootCmd.Flags().IntVar(&flagSettle, "settle", 0, "settle delay after each step in seconds (overrides config)")
	rootCmd.Flags().BoolVar(&flagHeadless, "headless", true, "expect a headless browser")
	rootCmd.Flags().StringVar(&flagDevtoolsURL, "devtools-url", envOr("PLENS_DEVTOOLS_URL", "http://127.0.0.1:9222"), "Chrome devtools endpoint")
	rootCmd.Flags().StringVar(&flagAgentURL, "agent-url", os.Getenv("PLENS_AGENT_URL"), "AI action agent endpoint")
	rootCmd.Flags().StringVarP(&flagSave, "save", "s", "", "write results JSON to file")
	rootCmd.Flags().StringVar(&flagStore, "store", "", "persist results to a sqlite database at path")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", envOr("PLENS_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if flagConfig == "" {
		return errors.New("config file required: plens --config journeys.yml")
	}

	log := logger.New(logger.Options{Level: flagLogLevel, Writers: []string{"console"}})

	file, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	names := file.TestCaseNames()
	if flagTestCase != "" {
		names = []string{flagTestCase}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	events := make(chan model.Event, 64)
	go func() {
		for evt := range events {
			log.Info("pixel fired", "vendor", evt.Vendor, "phase", string(evt.Phase), "url", evt.URL)
		}
	}()
	defer close(events)

	svc := api.NewService(api.Options{
		DevToolsURL: flagDevtoolsURL,
		Agent: agent.Config{
			Endpoint: flagAgentURL,
			APIKey:   os.Getenv("PLENS_AGENT_API_KEY"),
		},
		Events: events,
	}, log)

	var results []model.ValidationResult
	failed := 0
	for _, name := range names {
		jcfg, err := file.Journey(name)
		if err != nil {
			log.Err(err, "skipping test case", "testCase", name)
			failed++
			continue
		}
		applyOverrides(cmd, &jcfg)

		result := svc.RunJourney(ctx, name, jcfg)
		results = append(results, result)
		if !result.Success {
			failed++
		}

		rendered, rerr := report.Render(result)
		if rerr != nil {
			return rerr
		}
		fmt.Println(string(rendered))

		if ctx.Err() != nil {
			break
		}
	}

	if flagSave != "" && len(results) > 0 {
		if err := report.Save(results, flagSave); err != nil {
			return err
		}
		log.Info("results saved", "path", flagSave)
	}
	if flagStore != "" && len(results) > 0 {
		if err := storeResults(results, log); err != nil {
			return err
		}
	}

	log.Info("journeys finished", "passed", len(names)-failed, "total", len(names))
	if failed > 0 {
		return fmt.Errorf("%d of %d test cases failed", failed, len(names))
	}
	return nil
}

func applyOverrides(cmd *cobra.Command, cfg *model.JourneyConfig) {
	if cmd.Flags().Changed("timeout") && flagTimeout > 0 {
		cfg.Timeout = time.Duration(flagTimeout) * time.Second
	}
	if cmd.Flags().Changed("settle") && flagSettle >= 0 {
		cfg.SettleDelay = time.Duration(flagSettle) * time.Second
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = flagHeadless
	}
}

func storeResults(results []model.ValidationResult, log logger.Logger) error {
	st, err := storage.Open(flagStore, log)
	if err != nil {
		return err
	}
	defer st.Close()
	for _, r := range results {
		if err := st.SaveResult(r); err != nil {
			return err
		}
	}
	log.Info("results stored", "path", flagStore, "journeys", len(results))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
