// seed-admin creates or updates a backend user without going through the API.
//
// Usage:
//
//	DATA_DIR=./data go run ./cmd/seed-admin -username admin -password secret
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/kitchen_backend/config"
	"bitbucket.org/mmdatafocus/kitchen_backend/storage"
	"bitbucket.org/mmdatafocus/kitchen_backend/workflow"
)

func main() {
	username := flag.String("username", "admin", "username to create or update")
	password := flag.String("password", "", "Required: password to set")
	role := flag.String("role", "admin", "role to assign")
	flag.Parse()

	if strings.TrimSpace(*password) == "" {
		fmt.Fprintln(os.Stderr, "-password is required")
		os.Exit(1)
	}

	logger := config.GetLogger()
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data dir: %v\n", err)
		os.Exit(1)
	}

	locker := storage.NewPathLocker()
	store := storage.NewDocumentStore(locker, logger)
	guard := storage.NewWipeGuard(workflow.MRPTrackedLists(), store, logger)
	engine := workflow.NewEngine(workflow.NewRepository(dataDir, store, guard), logger)

	user, err := engine.EnsureUser(*username, *password, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("user %q (%s) ready, role %s\n", user.Username, user.ID, user.Role)
}
