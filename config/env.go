package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

func init() {
	// Load env from .env; a missing file is fine in production.
	godotenv.Load()
}

func Port() string {
	port := os.Getenv("PORT")
	if port == "" {
		return "8080"
	}
	return port
}

// DataDir is the directory that owns every JSON document of this process.
// The server assumes exclusive ownership of the files underneath it.
func DataDir() string {
	dir := os.Getenv("DATA_DIR")
	if dir == "" {
		dir = "./data"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}
