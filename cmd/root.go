package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/devopsext/measured/common"
	"github.com/devopsext/measured/label"
	"github.com/devopsext/measured/metric"
	"github.com/devopsext/measured/provider"
	"github.com/spf13/cobra"
)

var VERSION = "unknown"

var logs = common.NewLogs()
var registry = metric.NewRegistry()
var stdout *provider.Stdout
var mainWG sync.WaitGroup

type RootOptions struct {
	Logs []string
}

var rootOptions = RootOptions{
	Logs: []string{"stdout"},
}

var stdoutOptions = provider.StdoutOptions{

	Format:          "text",
	Level:           "info",
	Template:        "{{.file}} {{.msg}}",
	TimestampFormat: time.RFC3339Nano,
	TextColors:      true,
}

var scrapeOptions = provider.ScrapeOptions{

	URL:    "/metrics",
	Listen: "127.0.0.1:8080",
}

func interceptSyscall() {

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGKILL)
	go func() {
		<-c
		logs.Info("Exiting...")
		os.Exit(1)
	}()
}

func Execute() {

	rootCmd := &cobra.Command{
		Use:   "measured",
		Short: "Measured",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {

			stdoutOptions.Version = VERSION
			stdout = provider.NewStdout(stdoutOptions)
			stdout.SetCallerOffset(2)
			if common.HasElem(rootOptions.Logs, "stdout") {
				logs.Register(stdout)
			}

			logs.Info("Booting...")

			scrapeOptions.Version = VERSION
			scrape := provider.NewScrape(scrapeOptions, registry, logs, stdout)
			scrape.StartInWaitGroup(&mainWG)
		},
		Run: func(cmd *cobra.Command, args []string) {

			kinds := label.MustFixedSet("user", "internal", "network")
			routes := label.NewInterner(
				"/api/v1/users",
				"/api/v1/users/:id",
				"/api/v1/products",
				"/api/v1/products/:id",
				"/api/v1/products/:id/owner",
				"/api/v1/products/:id/purchase",
			)

			schema := label.MustSchema(
				label.Fixed("kind", kinds),
				label.Dynamic("route", routes),
			)

			errors := metric.NewSparseCounterVec(schema)
			if err := registry.Register("http_request_errors", "Request errors by kind and route", errors); err != nil {
				logs.Panic(err)
			}

			thresholds, err := metric.ExponentialThresholds(0.1, 2.0, 6)
			if err != nil {
				logs.Panic(err)
			}
			duration, err := metric.NewSparseHistogramVec(schema, thresholds)
			if err != nil {
				logs.Panic(err)
			}
			if err := registry.Register("http_request_duration_seconds", "Request duration by kind and route", duration); err != nil {
				logs.Panic(err)
			}

			logs.Info("Generating synthetic load, scrape %s on %s...", scrapeOptions.URL, scrapeOptions.Listen)

			go func() {
				for {
					kind := kinds.Decode(rand.Intn(kinds.Cardinality()))
					route := routes.Lookup(rand.Intn(routes.Len()))

					errors.Inc(kind, route)
					duration.Observe(rand.Float64()*2, kind, route)

					time.Sleep(100 * time.Millisecond)
				}
			}()

			logs.Info("Wait until it will be interrupted...")

			mainWG.Wait()
		},
	}

	flags := rootCmd.PersistentFlags()

	flags.StringSliceVar(&rootOptions.Logs, "logs", rootOptions.Logs, "Log providers: stdout")

	flags.StringVar(&stdoutOptions.Format, "stdout-format", stdoutOptions.Format, "Stdout format: json, text, template")
	flags.StringVar(&stdoutOptions.Level, "stdout-level", stdoutOptions.Level, "Stdout level: info, warn, error, debug, panic")
	flags.StringVar(&stdoutOptions.Template, "stdout-template", stdoutOptions.Template, "Stdout template")
	flags.StringVar(&stdoutOptions.TimestampFormat, "stdout-timestamp-format", stdoutOptions.TimestampFormat, "Stdout timestamp format")
	flags.BoolVar(&stdoutOptions.TextColors, "stdout-text-colors", stdoutOptions.TextColors, "Stdout text colors")

	flags.StringVar(&scrapeOptions.URL, "scrape-url", scrapeOptions.URL, "Scrape endpoint url")
	flags.StringVar(&scrapeOptions.Listen, "scrape-listen", scrapeOptions.Listen, "Scrape endpoint listen")

	interceptSyscall()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(VERSION)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		logs.Error(err)
		os.Exit(1)
	}
}
