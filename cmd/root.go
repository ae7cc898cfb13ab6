// =============================================================================
// XML Invoice Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command the subcommands ('process', 'version') attach to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (invoiceconv)
//   ├── processCmd (invoiceconv process)
//   └── versionCmd (invoiceconv version)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "invoiceconv",
	Short: "XML Invoice Converter - Transform XML B2B invoices into XLSX tables",
	Long: `XML Invoice Converter parses electronic B2B invoices in the FatturaPA
XML format and produces a flat, validated table for accounting reconciliation,
exported as a styled XLSX workbook.

Every input is screened before parsing: oversized files, unsafe filenames,
deeply nested documents and any DOCTYPE or entity declaration are rejected
with a specific reason. Well-formed invoices are flattened into a fixed
18-column schema, with optional carry-forward of drawing/order/DDT references
and optional grouping of lines sharing the same reference key.

Example Usage:
  invoiceconv process                     # Process all XML files in the input directory
  invoiceconv process --file invoice.xml  # Process a single file
  invoiceconv process --grouping          # Enable grouping for this run`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (default is config.yaml)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
