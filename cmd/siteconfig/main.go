package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/siteconfig/internal/application"
	"github.com/eugenenazirov/siteconfig/internal/config"
	"github.com/eugenenazirov/siteconfig/internal/loader"
	"github.com/eugenenazirov/siteconfig/internal/logging"
	"github.com/eugenenazirov/siteconfig/internal/siteconfig"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("siteconfig", "Documentation site configuration builder and handoff service")

	serveCmd := kingpinApp.Command("serve", "Load the site declaration, watch it and expose the handoff API").Default()
	configFile := serveCmd.Flag("config", "Path to YAML configuration file").String()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	declaration := serveCmd.Flag("declaration", "Path to the site declaration (yaml, json or toml)").String()
	var watchSet bool
	watch := serveCmd.Flag("watch", "Reload the declaration when the file changes").IsSetByUser(&watchSet).Bool()
	strategy := serveCmd.Flag("reload-strategy", "How reloads combine with the current snapshot").Enum(config.ReloadReplace, config.ReloadReconcile)
	logLevel := serveCmd.Flag("log-level", "Log level (debug, info, warn, error)").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	validateCmd := kingpinApp.Command("validate", "Build a declaration and report every error and warning")
	validateFile := validateCmd.Arg("file", "Declaration file").Required().ExistingFile()

	normalizeCmd := kingpinApp.Command("normalize", "Print the normalised form of a declaration")
	normalizeFile := normalizeCmd.Arg("file", "Declaration file").Required().ExistingFile()
	normalizeFormat := normalizeCmd.Flag("format", "Output format").Default("json").Enum("json", "yaml", "toml")

	reconcileCmd := kingpinApp.Command("reconcile", "Print NEXT reconciled over PREVIOUS")
	previousFile := reconcileCmd.Arg("previous", "Previous declaration file").Required().ExistingFile()
	nextFile := reconcileCmd.Arg("next", "Next declaration file").Required().ExistingFile()
	reconcileFormat := reconcileCmd.Flag("format", "Output format").Default("json").Enum("json", "yaml", "toml")

	switch kingpin.MustParse(kingpinApp.Parse(os.Args[1:])) {
	case validateCmd.FullCommand():
		kingpinApp.FatalIfError(runValidate(os.Stdout, *validateFile), "validate")
		return
	case normalizeCmd.FullCommand():
		kingpinApp.FatalIfError(runNormalize(os.Stdout, *normalizeFile, *normalizeFormat), "normalize")
		return
	case reconcileCmd.FullCommand():
		kingpinApp.FatalIfError(runReconcile(os.Stdout, *previousFile, *nextFile, *reconcileFormat), "reconcile")
		return
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *declaration != "" {
		overrides.DeclarationPath = declaration
	}

	if watchSet {
		overrides.Watch = watch
	}

	if *strategy != "" {
		overrides.ReloadStrategy = strategy
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Watch {
		go func() {
			if err := app.Watch(ctx); err != nil {
				logger.Error("declaration watcher stopped", zap.Error(err))
			}
		}()
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func runValidate(out io.Writer, path string) error {
	raw, err := loader.Load(path)
	if err != nil {
		return err
	}

	report, err := siteconfig.NewBuilder().BuildReport(raw)
	if err != nil {
		for _, finding := range siteconfig.Findings(err) {
			fmt.Fprintf(out, "error   %-16s %s\n", finding.Kind(), finding.Error())
		}
		return fmt.Errorf("%s: %w", path, siteconfig.ErrInvalidConfig)
	}

	for _, w := range report.Warnings {
		fmt.Fprintf(out, "warning %s\n", w)
	}
	fmt.Fprintf(out, "%s: ok (%d warnings)\n", path, len(report.Warnings))
	return nil
}

func runNormalize(out io.Writer, path, format string) error {
	cfg, err := buildFile(path)
	if err != nil {
		return err
	}
	return encode(out, cfg, format)
}

func runReconcile(out io.Writer, previousPath, nextPath, format string) error {
	previous, err := buildFile(previousPath)
	if err != nil {
		return err
	}
	next, err := buildFile(nextPath)
	if err != nil {
		return err
	}

	merged, err := siteconfig.Reconcile(previous, next)
	if err != nil {
		return err
	}
	return encode(out, merged, format)
}

func buildFile(path string) (siteconfig.SiteConfig, error) {
	raw, err := loader.Load(path)
	if err != nil {
		return siteconfig.SiteConfig{}, err
	}
	cfg, err := siteconfig.Build(raw)
	if err != nil {
		return siteconfig.SiteConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func encode(out io.Writer, cfg siteconfig.SiteConfig, name string) error {
	format, err := loader.ParseFormat(name)
	if err != nil {
		return err
	}
	return loader.Encode(out, cfg, format)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
