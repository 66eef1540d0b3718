package main

import (
	"github.com/joho/godotenv"

	"github.com/ventabot/ventabot/cmd"
)

func main() {
	// Secrets live in the environment; a local .env is a convenience for
	// development and is absent in production.
	_ = godotenv.Load()

	cmd.Execute()
}
