package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rojosync/rojo/cmd"
	"github.com/rojosync/rojo/pkg/diff"
	"github.com/rojosync/rojo/pkg/diffdisplay"
	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/placefile"
	"github.com/rojosync/rojo/pkg/vfs"
)

func diffMain(command *cobra.Command, arguments []string) error {
	projectPath := arguments[0]
	inputPath := arguments[1]

	logger := logging.RootLogger.Sublogger("diff")
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

	result := diff.Diff(oldTree, newTree, oldRoot, newRoot, filter)
	return diffdisplay.Render(oldTree, newTree, result, filter, diffdisplay.Options{Writer: os.Stdout})
}

var diffCommand = &cobra.Command{
	Use:   "diff <project> <input>",
	Short: "Show what syncback would change without applying it",
	Args:  cobra.ExactArgs(2),
	Run:   cmd.Mainify(diffMain),
}

var diffConfiguration struct {
	help bool
}

func init() {
	flags := diffCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&diffConfiguration.help, "help", "h", false, "Show help information")
}
