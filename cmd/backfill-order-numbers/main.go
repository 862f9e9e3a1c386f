// backfill-order-numbers assigns numbers to production and purchase orders
// written before numbering existed. Orders get numbers in creation order, the
// same assignment the server performs on startup.
//
// Usage:
//
//	DATA_DIR=./data go run ./cmd/backfill-order-numbers
package main

import (
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/kitchen_backend/config"
	"bitbucket.org/mmdatafocus/kitchen_backend/storage"
	"bitbucket.org/mmdatafocus/kitchen_backend/workflow"
)

func main() {
	flag.Parse()

	logger := config.GetLogger()
	dataDir := config.DataDir()
	if _, err := os.Stat(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "data dir not readable: %v\n", err)
		os.Exit(1)
	}

	locker := storage.NewPathLocker()
	store := storage.NewDocumentStore(locker, logger)
	guard := storage.NewWipeGuard(workflow.MRPTrackedLists(), store, logger)
	engine := workflow.NewEngine(workflow.NewRepository(dataDir, store, guard), logger)

	n, err := engine.BackfillOrderNumbers()
	if err != nil {
		fmt.Fprintf(os.Stderr, "backfill failed: %v\n", err)
		os.Exit(1)
	}
	if n == 0 {
		fmt.Println("all orders already numbered")
		return
	}
	fmt.Printf("assigned numbers to %d orders\n", n)
}
