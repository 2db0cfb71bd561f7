// main.go
package main

import (
	"Tradecurve/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local development; deployments set the environment
	// directly.
	_ = godotenv.Load()

	cmd.Execute()
}
