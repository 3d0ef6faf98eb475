// Command warctikad watches a directory for WARC files and rewrites them so
// binary document payloads are replaced by Tika-produced conversion
// records. Exit codes: 0 clean shutdown, 1 bad arguments, 2 extraction
// service unreachable at startup.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/miku/warctika/config"
	"github.com/miku/warctika/inflight"
	"github.com/miku/warctika/pidfile"
	"github.com/miku/warctika/tikaclient"
	"github.com/miku/warctika/warcrecord"
	"github.com/miku/warctika/watch"
)

func main() {
	os.Exit(run())
}

func run() int {
	v, err := config.Init()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var cfg config.Config
	var debug bool
	var endpoint string
	var pidFile string
	var deleteOnSuccess bool
	var workers int
	var gzipMode string

	cmd := &cobra.Command{
		Use:   "warctikad <dir>",
		Short: "Watch a directory and replace binary document payloads with Tika-produced conversion records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("parse config: %w", err)
			}
			cfg.Watch.Dir = args[0]
			if cmd.Flags().Changed("debug") {
				cfg.Debug = debug
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.Tika.Endpoint = endpoint
			}
			if cmd.Flags().Changed("pidfile") {
				cfg.PIDFile = pidFile
			}
			if cmd.Flags().Changed("delete") {
				cfg.Watch.DeleteOnSuccess = deleteOnSuccess
			}
			if cmd.Flags().Changed("workers") {
				cfg.Watch.Workers = workers
			}
			if cmd.Flags().Changed("gzip-mode") {
				cfg.Watch.GzipMode = gzipMode
			}
			return runDaemon(cfg)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Tika endpoint, e.g. http://localhost:9998/tika")
	cmd.Flags().StringVar(&pidFile, "pidfile", "", "path to a pidfile guarding against a second instance")
	cmd.Flags().BoolVar(&deleteOnSuccess, "delete", false, "delete the input file after successful conversion")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent files to process")
	cmd.Flags().StringVar(&gzipMode, "gzip-mode", "", "auto | per-record | plain")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// cobra's own error reporting already distinguishes usage errors; a
	// failure inside runDaemon keeps the code it set, anything else cobra
	// reports (parse/usage failures) maps to exit code 1.
	if err := cmd.Execute(); err != nil {
		if exitErr, ok := err.(interface{ ExitCode() int }); ok {
			return exitErr.ExitCode()
		}
		if exitCode != 0 {
			return exitCode
		}
		return 1
	}
	return exitCode
}

// exitCode is set by runDaemon so run can report 2 rather than cobra's
// generic 1 when the extraction service was unreachable at startup.
var exitCode int

func runDaemon(cfg config.Config) error {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	var logWriter = os.Stderr
	slog.SetDefault(slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: level})))

	if cfg.PIDFile != "" {
		if err := pidfile.Write(cfg.PIDFile, os.Getpid()); err != nil {
			slog.Error("pidfile", "err", err)
			exitCode = 1
			return err
		}
		defer os.Remove(cfg.PIDFile)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := tikaclient.Probe(ctx, cfg.Tika.Endpoint, nil); err != nil {
		slog.Error("extraction service unreachable at startup", "endpoint", cfg.Tika.Endpoint, "err", err)
		exitCode = 2
		return err
	}

	var gzipMode warcrecord.GzipMode
	switch cfg.Watch.GzipMode {
	case "per-record":
		gzipMode = warcrecord.GzipPerRecord
	case "plain":
		gzipMode = warcrecord.GzipPlain
	default:
		gzipMode = warcrecord.GzipAuto
	}

	registry := inflight.NewRegistry()
	driver := &watch.Driver{
		Dir:             cfg.Watch.Dir,
		InSuffix:        cfg.Watch.InSuffix,
		OutSuffix:       cfg.Watch.OutSuffix,
		Workers:         cfg.Watch.Workers,
		PollInterval:    cfg.Watch.PollInterval,
		DeleteOnSuccess: cfg.Watch.DeleteOnSuccess,
		GzipMode:        gzipMode,
		MinFreeDiskPct:  cfg.Watch.MinFreeDiskPct,
		Registry:        registry,
		TikaConfig: tikaclient.Config{
			Endpoint:       cfg.Tika.Endpoint,
			MinOutputBytes: cfg.Tika.MinOutputBytes,
			MaxRetries:     cfg.Tika.MaxRetries,
			BackoffBase:    time.Second,
			BackoffCap:     2 * time.Minute,
		},
	}

	runCtx, stop := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("received shutdown signal")
		registry.CleanupAll()
		stop()
	}()

	if cfg.Watch.UseNotify {
		if wm, err := watch.NewWatchManager(driver); err == nil {
			go wm.Run(runCtx)
		} else {
			slog.Warn("fsnotify unavailable, relying on poll loop only", "err", err)
		}
	}

	slog.Info("watching", "dir", driver.Dir, "in_suffix", driver.InSuffix, "out_suffix", driver.OutSuffix)
	if err := driver.Run(runCtx); err != nil {
		exitCode = 1
		return err
	}
	exitCode = 0
	return nil
}
