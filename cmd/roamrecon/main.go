package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roamrecon",
	Short: "Roaming usage reconciliation",
	Long: `roamrecon ingests operator usage files, attributes every record to the
rate entities of the roaming agreement in force, and accumulates monthly
volumes for settlement reporting.

Examples:
  roamrecon process WSMDP_MFS_PAY_202505.csv
  roamrecon watch --config configs
  roamrecon migrate`,
}

func main() {
	_ = godotenv.Load()

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(verifyDBCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
