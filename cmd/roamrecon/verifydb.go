package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"roaming-recon/internal/db"
)

var verifyDBCmd = &cobra.Command{
	Use:   "verify-db",
	Short: "Check database connectivity and expected tables",
	RunE:  runVerifyDB,
}

func runVerifyDB(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		return err
	}
	defer pool.Close()

	tables := []string{"file_hash_table", "monthly_table", "schema_migrations"}
	missing := 0
	for _, table := range tables {
		var exists bool
		err := pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if exists {
			fmt.Printf("ok      %s\n", table)
		} else {
			fmt.Printf("missing %s\n", table)
			missing++
		}
	}

	if missing > 0 {
		return fmt.Errorf("%d expected table(s) missing, run migrate first", missing)
	}
	fmt.Println("database verified")
	return nil
}
