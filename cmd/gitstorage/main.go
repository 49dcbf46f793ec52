package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/weaveworks/gitstorage/pkg/backend"
	"github.com/weaveworks/gitstorage/pkg/fastforward"
	"github.com/weaveworks/gitstorage/pkg/remote"
	"github.com/weaveworks/gitstorage/pkg/server"
	"github.com/weaveworks/gitstorage/pkg/storage"
	"github.com/weaveworks/gitstorage/pkg/watch"
)

var (
	repoFlag        = pflag.StringP("repo", "r", ".", "Path of the repository to operate on")
	revFlag         = pflag.String("rev", "", "Revision to read, HEAD if empty")
	dateFormatFlag  = pflag.String("date-format", string(storage.DateFormatDefault), "Date format: default or rfc3339.local")
	logLevelFlag    = pflag.String("log-level", logrus.InfoLevel.String(), "Log level: panic, fatal, error, warn, info, debug or trace")
	countFlag       = pflag.IntP("count", "n", 10, "Number of log entries")
	addrFlag        = pflag.String("addr", ":8881", "Address serve listens on")
	branchFlag      = pflag.String("main-branch", "master", "Branch HEAD points to in new repositories")
	timeoutFlag     = pflag.Duration("timeout", time.Minute, "Timeout for a single fetch")
	intervalFlag    = pflag.Duration("interval", 0, "Mirror: sync this often")
	watchFlag       = pflag.Bool("watch", false, "Mirror: sync whenever refs of the local remote change")
	traceStdoutFlag = pflag.Bool("trace-stdout", false, "Print traces to stdout")
	traceJaegerFlag = pflag.String("trace-jaeger", "", "Export traces to this Jaeger collector endpoint")
	traceOTelFlag   = pflag.String("trace-otel", "", "Export traces to this OpenTelemetry collector address")
)

const usage = `Usage: gitstorage [flags] <command> [args]

Commands:
  init                 create an empty repository at --repo
  rev                  print the revision being read
  files                list every file
  ls [path]            list a directory
  cat <path>           print a file
  info [path]          describe a path
  log [start]          print the history
  sync <remote>        fetch and fast-forward every branch of remote
  mirror <remote>      sync repeatedly, see --interval and --watch
  serve                serve the repository read-only over HTTP

Flags:
`

func main() {
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	parseFlags()

	if err := run(pflag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		pflag.Usage()
		return errors.New("no command given")
	}
	dateFormat, err := storage.ParseDateFormat(*dateFormatFlag)
	if err != nil {
		return err
	}
	path, err := repoPath()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, flush, err := setupTracing(ctx)
	if err != nil {
		return err
	}
	defer flush()

	b := backend.New(backend.IdentityLocator,
		backend.MainBranch(*branchFlag),
		backend.Timeout(*timeoutFlag),
		backend.DateFormat(dateFormat),
	)
	open := func() (*storage.Storage, error) {
		s, err := b.Acquire(path)
		if err != nil {
			return nil, err
		}
		if *revFlag != "" {
			if err := s.Checkout(*revFlag); err != nil {
				return nil, err
			}
		}
		return s, nil
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "init":
		_, err := b.Install(path)
		return err
	case "rev":
		s, err := open()
		if err != nil {
			return err
		}
		fmt.Println(s.Rev())
		return nil
	case "files":
		s, err := open()
		if err != nil {
			return err
		}
		files, err := s.Files()
		if err != nil {
			return err
		}
		printLines(files)
		return nil
	case "ls":
		s, err := open()
		if err != nil {
			return err
		}
		entries, err := s.Listdir(optionalArg(args))
		if err != nil {
			return err
		}
		printLines(entries)
		return nil
	case "cat":
		if len(args) != 1 {
			return errors.New("cat needs a path")
		}
		s, err := open()
		if err != nil {
			return err
		}
		content, err := s.File(args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(content)
		return err
	case "info":
		s, err := open()
		if err != nil {
			return err
		}
		info, err := s.Pathinfo(optionalArg(args))
		if err != nil {
			return err
		}
		return printJSON(info)
	case "log":
		s, err := open()
		if err != nil {
			return err
		}
		entries, err := s.Log(optionalArg(args), *countFlag)
		if err != nil {
			return err
		}
		return printJSON(entries)
	case "sync":
		identifier, err := remoteArg(args)
		if err != nil {
			return err
		}
		results, err := b.Sync(ctx, path, identifier)
		printResults(results)
		return err
	case "mirror":
		identifier, err := remoteArg(args)
		if err != nil {
			return err
		}
		return mirror(ctx, b, path, identifier)
	case "serve":
		logrus.Infof("Serving %s on %s", path, *addrFlag)
		return startEcho(ctx, server.New(func() (*storage.Storage, error) { return b.Acquire(path) }), *addrFlag)
	}
	pflag.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func mirror(ctx context.Context, b *backend.Backend, path, identifier string) error {
	report := func(results []*fastforward.Result, _ error) { printResults(results) }
	switch {
	case *watchFlag:
		ep, err := remote.Classify(identifier)
		if err != nil {
			return err
		}
		if ep.Scheme != remote.SchemeLocal {
			return fmt.Errorf("--watch needs a local remote, got %s", ep)
		}
		w, err := watch.NewRefWatcher(ep.Path)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		b.MirrorOn(ctx, path, identifier, w.Changes(), report)
		return nil
	case *intervalFlag > 0:
		b.MirrorEvery(ctx, path, identifier, *intervalFlag, report)
		return nil
	}
	return errors.New("mirror needs --interval or --watch")
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func remoteArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("a remote is required: an http(s):// or git:// URL, or an absolute path")
	}
	return args[0], nil
}

func printLines(lines []string) {
	if len(lines) > 0 {
		fmt.Println(strings.Join(lines, "\n"))
	}
}

func printResults(results []*fastforward.Result) {
	for _, r := range results {
		fmt.Println(r)
	}
}
