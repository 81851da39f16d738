// Package main provides the ignis CLI, a command-line front end to the
// local CRM store.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// IGNIS_* variables may be kept in a project .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(exitSysError)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ignis:", err)
		os.Exit(exitCode(err))
	}
}
