package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/harrison/drover/internal/cmd"
)

func main() {
	// A missing .env is the normal case; loading is best-effort.
	_ = godotenv.Load()

	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			// The run already reported its outcome through the loggers.
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
