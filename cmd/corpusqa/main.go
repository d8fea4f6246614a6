package main

import (
	"github.com/joho/godotenv"

	"corpusqa/internal/cli"
)

func main() {
	// Missing .env is fine; credentials may come from the environment.
	_ = godotenv.Load()

	cli.Execute()
}
