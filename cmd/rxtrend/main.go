package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/pharmetric/rxtrend/internal/cli"
)

func main() {
	// A missing .env is fine; explicit env and config still apply
	_ = godotenv.Load()

	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
