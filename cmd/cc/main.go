// Command cc64 translates one preprocessed-or-raw C translation unit
// into a relocatable ELF64 object file, wiring together this repository's
// lexer, preprocessor, parser/IR builder, and naivex64 reference backend
// into one end-to-end command-line driver.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/logutils"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "cc64 <input.c>",
		Short: "compile one preprocessed C translation unit to an ELF64 object file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	defineFlags(root.Flags())

	if err := root.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"},
		MinLevel: logutils.LogLevel(cfg.LogLevel),
		Writer:   os.Stderr,
	}
	logger := log.New(filter, "cc64: ", 0)

	return Compile(cfg, args[0], logger)
}
