package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"roaming-recon/internal/deal"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the deal document JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(deal.DocumentSchema(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}
