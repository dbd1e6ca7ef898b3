package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ikasa-digital/leads-cli/internal/cnpj"
	"github.com/ikasa-digital/leads-cli/internal/normalize"
)

var lookupRaw bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <cnpj>",
	Short: "Fetch one company from the registry by CNPJ",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		taxID := cnpj.Clean(args[0])
		if !cnpj.Valid(taxID) {
			return eris.Errorf("invalid CNPJ: %s", args[0])
		}

		office, err := initRegistry().Lookup(ctx, taxID)
		if err != nil {
			return eris.Wrap(err, "registry lookup")
		}
		if office == nil {
			fmt.Fprintf(os.Stderr, "CNPJ %s not found in the registry.\n", args[0])
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if lookupRaw {
			return enc.Encode(office)
		}

		company, err := normalize.Normalize(*office)
		if err != nil {
			return eris.Wrap(err, "normalize record")
		}
		return enc.Encode(company)
	},
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupRaw, "raw", false, "print the raw registry record")
	rootCmd.AddCommand(lookupCmd)
}
