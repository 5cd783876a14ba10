package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rojosync/rojo/cmd"
	"github.com/rojosync/rojo/pkg/contextutil"
	"github.com/rojosync/rojo/pkg/housekeeping"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/placefile"
	"github.com/rojosync/rojo/pkg/vfs"
	"github.com/rojosync/rojo/pkg/watch"
)

// serveMain watches projectPath and rebuilds outputPath each time the
// watcher observes a change, until interrupted. Per SPEC_FULL.md §5 this is
// a stub good enough to compile and run: no message queue, no client
// protocol, just the rebuild-on-change loop a `rojo serve` invocation needs.
func serveMain(command *cobra.Command, arguments []string) error {
	projectPath := arguments[0]
	outputPath := arguments[1]

	absProject, err := filepath.Abs(projectPath)
	if err != nil {
		return fmt.Errorf("unable to resolve project path: %w", err)
	}
	absOutput, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("unable to resolve output path: %w", err)
	}

	logger := logging.RootLogger.Sublogger("serve")
	registry := newRegistry(logger)
	fs := vfs.NewOSFS(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go housekeeping.HousekeepRegularly(ctx, logger.Sublogger("housekeeping"))

	rebuild := func() error {
		snap, err := snapshotRoot(registry, fs, absProject)
		if err != nil {
			return err
		}
		data, err := placefile.Encode(snap, absOutput)
		if err != nil {
			return err
		}
		return fs.WriteFile(absOutput, data)
	}

	if err := rebuild(); err != nil {
		return fmt.Errorf("unable to perform initial build: %w", err)
	}
	logger.Printf("serving %s, writing to %s", absProject, absOutput)

	interval := time.Duration(serveConfiguration.pollIntervalMS) * time.Millisecond
	session := watch.Watch(ctx, absProject, interval)
	defer session.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-session.Events():
			if !ok {
				return nil
			}
			if err := rebuild(); err != nil {
				if contextutil.IsCancelled(ctx) {
					return nil
				}
				cmd.Warning(fmt.Sprintf("rebuild failed: %v", err))
				continue
			}
			logger.Println("rebuilt after detecting a change")
		}
	}
}

var serveCommand = &cobra.Command{
	Use:   "serve <project> <output>",
	Short: "Watch a project and rebuild an output file on every change",
	Args:  cobra.ExactArgs(2),
	Run:   cmd.Mainify(serveMain),
}

var serveConfiguration struct {
	help           bool
	pollIntervalMS int
}

func init() {
	flags := serveCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&serveConfiguration.help, "help", "h", false, "Show help information")
	flags.IntVar(&serveConfiguration.pollIntervalMS, "poll-interval", 500, "Filesystem poll interval, in milliseconds")
}
