package main

import (
	"github.com/joho/godotenv"

	"lynck-space/cmd"
)

func main() {
	// Load .env if present. Environment variables win over config files.
	godotenv.Load()

	cmd.Execute()
}
