package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "escpos-printout",
	Short: "ESC/POS print server for Printout markup documents",
	Long: `escpos-printout turns Printout markup documents into ESC/POS command
bytes and sends them to a USB, serial or file printer.

Configuration is read from an optional file and from ESCPOS_* environment
variables, e.g. ESCPOS_SERVER_ADDRESS=0.0.0.0:9100.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml, json or toml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(encodingsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
