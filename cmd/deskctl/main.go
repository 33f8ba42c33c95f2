package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	if err := newRootCmd(newCLI()).Execute(); err != nil {
		os.Exit(1)
	}
}
