package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parlatext/parlatext/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "parlatextd",
		Short: "Parlatext daemon",
		Long:  "Parlatext daemon for ingesting parliamentary documents and serving the retrieval API",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
