package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rojosync/rojo/cmd"
	"github.com/rojosync/rojo/pkg/config"
	"github.com/rojosync/rojo/pkg/housekeeping"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/placefile"
	"github.com/rojosync/rojo/pkg/profile"
	"github.com/rojosync/rojo/pkg/vfs"
)

// outputLockSuffix names the marker file build leaves next to an output it
// produced, so a later build invocation can detect "this file was last
// written by rojo" and prompt before clobbering it, per spec §6's "when an
// adjacent lock file exists for the output, interactive mode prompts to
// overwrite."
const outputLockSuffix = ".lock"

func buildMain(command *cobra.Command, arguments []string) error {
	projectPath := arguments[0]
	outputPath := arguments[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	nonInteractive := buildConfiguration.nonInteractive || cfg.NonInteractive || !cmd.StdoutIsTerminal()
	noTrash := buildConfiguration.noTrash || cfg.NoTrash

	logger := logging.RootLogger.Sublogger("build")

	if buildConfiguration.cpuProfile != "" {
		prof, err := profile.New(buildConfiguration.cpuProfile)
		if err != nil {
			return fmt.Errorf("unable to start profiling: %w", err)
		}
		defer func() {
			if finalizeErr := prof.Finalize(); finalizeErr != nil {
				cmd.Warning(fmt.Sprintf("unable to finalize profile: %v", finalizeErr))
			}
		}()
	}

	absOutput, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("unable to resolve output path: %w", err)
	}

	registry := newRegistry(logger)
	fs := vfs.NewOSFS(logger)

	snap, err := snapshotRoot(registry, fs, projectPath)
	if err != nil {
		return err
	}

	lockPath := absOutput + outputLockSuffix
	if _, statErr := os.Stat(lockPath); statErr == nil {
		if !nonInteractive {
			prompter := &cmd.StatusLinePrompter{Printer: &cmd.StatusLinePrinter{}}
			confirmed, promptErr := prompter.Confirm(fmt.Sprintf("%s was last written by rojo; overwrite? (y/N) ", absOutput))
			if promptErr != nil {
				return fmt.Errorf("unable to read overwrite confirmation: %w", promptErr)
			}
			if !confirmed {
				return nil
			}
		}
	}

	if !noTrash {
		if err := housekeeping.MoveToTrash(absOutput); err != nil {
			cmd.Warning(fmt.Sprintf("unable to move %s to trash: %v", absOutput, err))
		}
	}

	data, err := placefile.Encode(snap, absOutput)
	if err != nil {
		return err
	}
	if err := fs.WriteFile(absOutput, data); err != nil {
		return fmt.Errorf("unable to write %s: %w", absOutput, err)
	}
	if err := fs.WriteFile(lockPath, nil); err != nil {
		cmd.Warning(fmt.Sprintf("unable to write lock marker %s: %v", lockPath, err))
	}

	housekeeping.HousekeepWithRetention(logger, cfg.TrashRetention(housekeeping.DefaultTrashRetention))

	return nil
}

var buildCommand = &cobra.Command{
	Use:   "build <project> <output>",
	Short: "Build a project into a place or model file",
	Args:  cobra.ExactArgs(2),
	Run:   cmd.Mainify(buildMain),
}

var buildConfiguration struct {
	help           bool
	nonInteractive bool
	noTrash        bool
	cpuProfile     string
}

func init() {
	flags := buildCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&buildConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVar(&buildConfiguration.nonInteractive, "non-interactive", false, "Never prompt; overwrite without asking")
	flags.BoolVar(&buildConfiguration.noTrash, "no-trash", false, "Delete an existing output instead of moving it to the trash")
	flags.StringVar(&buildConfiguration.cpuProfile, "cpu-profile", "", "Write a CPU and heap profile with this name prefix")
}
