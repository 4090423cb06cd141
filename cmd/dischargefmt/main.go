package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stealthcompany.com/dischargeformat/internal/assemble"
	"stealthcompany.com/dischargeformat/internal/render"
	"stealthcompany.com/dischargeformat/internal/source"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

const (
	exitOK           = 0
	exitFailure      = 1
	exitNoInput      = 3
	exitMalformed    = 4
	exitOutput       = 5
	exitDuplicateKey = 6
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		log.Debug().Msg("Not found .env file in parent directory, trying current directory")
		if err := godotenv.Load(".env"); err != nil {
			log.Debug().Msg("Not found .env file in current directory, assuming environment variables are set")
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("dischargefmt failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dischargefmt",
		Short:         "Format synthetic patient data into HCAI discharge records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(formatCmd())
	root.AddCommand(layoutsCmd())
	root.AddCommand(versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "dischargefmt", version)
		},
	}
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var malformed *source.MalformedInputError
	var output *render.OutputError
	var dup *assemble.DuplicateKeyError
	switch {
	case errors.Is(err, source.ErrNoInputData):
		return exitNoInput
	case errors.As(err, &malformed):
		return exitMalformed
	case errors.As(err, &output):
		return exitOutput
	case errors.As(err, &dup):
		return exitDuplicateKey
	default:
		return exitFailure
	}
}
