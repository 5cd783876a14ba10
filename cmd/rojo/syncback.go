package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rojosync/rojo/cmd"
	"github.com/rojosync/rojo/pkg/config"
	"github.com/rojosync/rojo/pkg/diff"
	"github.com/rojosync/rojo/pkg/diffdisplay"
	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/fssnapshot"
	"github.com/rojosync/rojo/pkg/housekeeping"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/placefile"
	"github.com/rojosync/rojo/pkg/syncback"
	"github.com/rojosync/rojo/pkg/vfs"
)

func syncbackMain(command *cobra.Command, arguments []string) error {
	projectPath := arguments[0]
	inputPath := arguments[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}
	nonInteractive := syncbackConfiguration.nonInteractive || cfg.NonInteractive || !cmd.StdoutIsTerminal()

	absProjectPath, err := filepath.Abs(projectPath)
	if err != nil {
		return fmt.Errorf("unable to resolve project path: %w", err)
	}

	logger := logging.RootLogger.Sublogger("syncback")
	registry := newRegistry(logger)
	fs := vfs.NewOSFS(logger)

	oldTree, oldRoot, err := loadTree(registry, fs, logger, projectPath)
	if err != nil {
		return err
	}

	inputData, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", inputPath, err)
	}
	newSnap, err := placefile.Decode(inputData, inputPath)
	if err != nil {
		return err
	}
	newTree := dom.NewTree(logger)
	newRoot := newTree.SetRoot(newSnap)

	filter := filterForRoot(oldTree, oldRoot)

	if !nonInteractive {
		preview := diff.Diff(oldTree, newTree, oldRoot, newRoot, filter)
		if err := diffdisplay.Render(oldTree, newTree, preview, filter, diffdisplay.Options{Writer: os.Stdout}); err != nil {
			return fmt.Errorf("unable to render diff: %w", err)
		}
		prompter := &cmd.StatusLinePrompter{Printer: &cmd.StatusLinePrinter{}}
		confirmed, err := prompter.Confirm("Apply the above changes to disk? (y/N) ")
		if err != nil {
			return fmt.Errorf("unable to read confirmation: %w", err)
		}
		if !confirmed {
			return nil
		}
	}

	planned, err := syncback.Syncback(oldTree, newTree, syncback.Options{
		Registry:        registry,
		Filter:          filter,
		RootPath:        absProjectPath,
		GlobIgnorePaths: globIgnorePathsForRoot(oldTree, oldRoot),
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	old := oldFootprint(fs, oldTree)
	if err := fssnapshot.Reconcile(fs, old, planned); err != nil {
		return fmt.Errorf("unable to apply syncback plan: %w", err)
	}

	housekeeping.HousekeepWithRetention(logger, cfg.TrashRetention(housekeeping.DefaultTrashRetention))

	return nil
}

var syncbackCommand = &cobra.Command{
	Use:   "syncback <project> <input>",
	Short: "Sync a place or model file back onto its filesystem project",
	Args:  cobra.ExactArgs(2),
	Run:   cmd.Mainify(syncbackMain),
}

var syncbackConfiguration struct {
	help           bool
	nonInteractive bool
}

func init() {
	flags := syncbackCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&syncbackConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVar(&syncbackConfiguration.nonInteractive, "non-interactive", false, "Apply changes without printing a diff or prompting")
}
