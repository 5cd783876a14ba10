package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/rojosync/rojo/cmd"
	"github.com/rojosync/rojo/pkg/rojo"
)

func rootMain(command *cobra.Command, arguments []string) {
	// Print version information, if requested.
	if rootConfiguration.version {
		fmt.Println(rojo.Version)
		return
	}

	// Print legal information, if requested.
	if rootConfiguration.legal {
		fmt.Print(rojo.LegalNotice)
		return
	}

	// Generate bash completion script, if requested.
	if rootConfiguration.bashCompletionScript != "" {
		if err := command.GenBashCompletionFile(rootConfiguration.bashCompletionScript); err != nil {
			cmd.Fatal(errors.Wrap(err, "unable to generate bash completion script"))
		}
		return
	}

	// If no flags were set, then print help information and bail.
	command.Help()
}

var rootCommand = &cobra.Command{
	Use:   "rojo",
	Short: "Rojo syncs a Roblox instance tree between a filesystem project and a place or model file.",
	Run:   rootMain,
}

var rootConfiguration struct {
	help                 bool
	version              bool
	legal                bool
	bashCompletionScript string
}

func init() {
	// Bind flags to configuration. We manually add help to override the
	// default message, but Cobra still implements it automatically.
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVarP(&rootConfiguration.version, "version", "V", false, "Show version information")
	flags.BoolVarP(&rootConfiguration.legal, "legal", "l", false, "Show legal information")
	flags.StringVar(&rootConfiguration.bashCompletionScript, "generate-bash-completion", "", "Generate bash completion script")
	flags.MarkHidden("generate-bash-completion")

	// Disable Cobra's command sorting behavior. By default, it sorts
	// commands alphabetically in the help output.
	cobra.EnableCommandSorting = false

	// Register commands. We do this here (rather than in individual init
	// functions) so that we can control the order.
	rootCommand.AddCommand(
		buildCommand,
		syncbackCommand,
		diffCommand,
		serveCommand,
		versionCommand,
		legalCommand,
	)
}

func main() {
	// Execute the root command.
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
