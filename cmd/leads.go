package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ikasa-digital/leads-cli/internal/model"
)

var (
	leadsDate   string
	leadsFormat string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List captured leads for one day",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		led, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer led.Close() //nolint:errcheck
		if err := led.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate ledger")
		}

		date := leadsDate
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return eris.Errorf("invalid date %q, want YYYY-MM-DD", date)
		}

		records, err := led.ListByDate(ctx, date)
		if err != nil {
			return eris.Wrap(err, "ledger list")
		}

		if leadsFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		if len(records) == 0 {
			fmt.Fprintf(os.Stderr, "No leads captured on %s.\n", date)
			return nil
		}

		formatLeads(os.Stdout, records)
		return nil
	},
}

func formatLeads(w io.Writer, records []model.LeadRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CNPJ\tCOMPANY\tCITY/UF\tSTATUS\tCRM\tEMAIL")
	for _, r := range records {
		email := "-"
		if r.EmailSent {
			email = "sent"
		}
		crm := r.CRMLeadID
		if crm == "" {
			crm = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\t%s\n",
			r.Company.FormattedTaxID(),
			r.Company.DisplayName(),
			r.Company.City,
			r.Company.State,
			r.Status,
			crm,
			email,
		)
	}
	tw.Flush()
}

func init() {
	leadsCmd.Flags().StringVar(&leadsDate, "date", "", "capture day, YYYY-MM-DD (default today)")
	leadsCmd.Flags().StringVar(&leadsFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(leadsCmd)
}
