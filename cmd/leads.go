package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and manage stored leads",
	Long:  "Commands for listing, viewing, and importing leads.",
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		source, _ := cmd.Flags().GetString("source")
		qualifiedOnly, _ := cmd.Flags().GetBool("qualified")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := store.LeadFilter{
			Source:        model.Source(source),
			QualifiedOnly: qualifiedOnly,
			Limit:         limit,
			Offset:        offset,
		}

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}

		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		formatLeadsList(os.Stdout, leads)
		return nil
	},
}

// -- leads get --

var leadsGetCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Show full details of a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		lead, err := st.GetLead(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "leads get")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lead)
	},
}

// -- leads import --

var leadsImportPath string

var leadsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads from a JSON file",
	Long:  "Reads a JSON array of leads and upserts them into the store. On Postgres, unevaluated leads take the bulk COPY path.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		data, err := os.ReadFile(leadsImportPath)
		if err != nil {
			return eris.Wrapf(err, "read %s", leadsImportPath)
		}

		var leads []model.Lead
		if err := json.Unmarshal(data, &leads); err != nil {
			return eris.Wrap(err, "decode leads file")
		}

		valid := leads[:0]
		invalid := 0
		for i := range leads {
			if err := leads[i].Validate(); err != nil {
				invalid++
				zap.L().Warn("skipping invalid lead",
					zap.String("url", leads[i].URL),
					zap.Error(err),
				)
				continue
			}
			valid = append(valid, leads[i])
		}

		imported, err := importLeads(ctx, st, valid)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int("imported", imported),
			zap.Int("invalid", invalid),
			zap.String("file", leadsImportPath),
		)
		return nil
	},
}

// importLeads upserts leads, using the Postgres bulk path when every lead is
// unevaluated.
func importLeads(ctx context.Context, st store.Store, leads []model.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	if pg, ok := st.(*store.PostgresStore); ok && allUnevaluated(leads) {
		n, err := pg.BulkUpsertLeads(ctx, leads)
		if err != nil {
			return 0, eris.Wrap(err, "bulk import")
		}
		return int(n), nil
	}

	imported := 0
	for i := range leads {
		if _, err := st.UpsertLead(ctx, &leads[i]); err != nil {
			return imported, eris.Wrapf(err, "import lead %s", leads[i].URL)
		}
		imported++
	}
	return imported, nil
}

func allUnevaluated(leads []model.Lead) bool {
	for i := range leads {
		if leads[i].Qualification != nil {
			return false
		}
	}
	return true
}

// formatLeadsList writes a tabular list of leads to w.
func formatLeadsList(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tAUTHOR\tQUALIFIED\tCONFIDENCE\tURL")
	_, _ = fmt.Fprintln(w, "------\t------\t---------\t----------\t---")

	for _, l := range leads {
		qualified, confidence := "-", "-"
		if q := l.Qualification; q != nil {
			if q.IsQualified {
				qualified = "yes"
			} else {
				qualified = "no"
			}
			confidence = fmt.Sprintf("%.2f", q.Confidence)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			l.Source, l.Author, qualified, confidence, l.URL)
	}
	_ = w.Flush()
}

func init() {
	leadsListCmd.Flags().String("source", "", "filter by source")
	leadsListCmd.Flags().Bool("qualified", false, "only leads with a positive verdict")
	leadsListCmd.Flags().Int("limit", 50, "max leads to list")
	leadsListCmd.Flags().Int("offset", 0, "offset into the result set")

	leadsImportCmd.Flags().StringVar(&leadsImportPath, "file", "", "path to JSON leads file (required)")
	_ = leadsImportCmd.MarkFlagRequired("file")

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsGetCmd)
	leadsCmd.AddCommand(leadsImportCmd)
	rootCmd.AddCommand(leadsCmd)
}
