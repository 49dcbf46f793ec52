package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/labstack/echo"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/weaveworks/gitstorage/pkg/tracing"
	"github.com/weaveworks/gitstorage/pkg/version"
)

const shutdownTimeout = 10 * time.Second

// parseFlags parses the command line and handles --version and --log-level.
func parseFlags() {
	var showVersion bool

	pflag.BoolVar(&showVersion, "version", showVersion, "Show version information and exit")
	pflag.Parse()
	if showVersion {
		fmt.Printf("gitstorage version: %#v\n", version.Get())
		os.Exit(0)
	}

	level, err := logrus.ParseLevel(*logLevelFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logrus.SetLevel(level)
}

func repoPath() (string, error) {
	return homedir.Expand(*repoFlag)
}

// setupTracing installs a global TracerProvider if any exporter was asked
// for. The returned function flushes it.
func setupTracing(ctx context.Context) (context.Context, func(), error) {
	b := tracing.NewBuilder().WithLogging(logrus.IsLevelEnabled(logrus.DebugLevel))
	enabled := false
	if *traceStdoutFlag {
		b.RegisterStdoutExporter()
		enabled = true
	}
	if *traceJaegerFlag != "" {
		b.RegisterInsecureJaegerExporter(*traceJaegerFlag)
		enabled = true
	}
	if *traceOTelFlag != "" {
		b.RegisterInsecureOTelExporter(ctx, *traceOTelFlag)
		enabled = true
	}
	if !enabled {
		return ctx, func() {}, nil
	}

	tp, err := b.InstallGlobally()
	if err != nil {
		return nil, nil, err
	}
	shutdown := func() {
		if err := tracing.Shutdown(context.Background(), tp, shutdownTimeout); err != nil {
			logrus.Errorf("Flushing traces: %v", err)
		}
	}
	return tracing.WithGlobalProvider(ctx), shutdown, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// startEcho serves e on addr until ctx is done, then shuts it down with a
// grace period.
func startEcho(ctx context.Context, e *echo.Echo, addr string) error {
	errs := make(chan error, 1)
	go func() {
		errs <- e.Start(addr)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	logrus.Info("Shutting down the server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
