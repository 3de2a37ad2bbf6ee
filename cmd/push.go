package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	sfpkg "github.com/sells-group/leadscout/pkg/salesforce"
)

// sfDescriptionLimit is the Salesforce Description field cap.
const sfDescriptionLimit = 32000

var (
	pushMinConfidence float64
	pushDryRun        bool
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push accepted leads to Salesforce",
	Long:  "Creates Lead records for accepted leads that are not already in Salesforce, matched by Website.",
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

		minConfidence := pushMinConfidence
		if minConfidence <= 0 {
			minConfidence = cfg.Qualify.MinConfidence
		}

		leads, err := st.ListQualified(ctx, minConfidence)
		if err != nil {
			return eris.Wrap(err, "list qualified leads")
		}
		if len(leads) == 0 {
			zap.L().Info("no accepted leads to push")
			return nil
		}

		sfClient, err := initSalesforce()
		if err != nil {
			return err
		}

		websites := make([]string, len(leads))
		for i := range leads {
			websites[i] = leads[i].URL
		}
		existing, err := sfpkg.ExistingWebsites(ctx, sfClient, cfg.Salesforce.LeadObject, websites)
		if err != nil {
			return err
		}

		var records []map[string]any
		for i := range leads {
			if existing[leads[i].URL] {
				continue
			}
			records = append(records, buildLeadRecord(&leads[i]))
		}
		if len(records) == 0 {
			zap.L().Info("all accepted leads already pushed",
				zap.Int("accepted", len(leads)),
			)
			return nil
		}

		if pushDryRun {
			zap.L().Info("dry run, skipping push",
				zap.Int("would_push", len(records)),
				zap.Int("already_pushed", len(leads)-len(records)),
			)
			return nil
		}

		results, err := sfpkg.PushLeads(ctx, sfClient, cfg.Salesforce.LeadObject, records)
		if err != nil {
			return err
		}

		pushed, failed := 0, 0
		for _, r := range results {
			if r.Success {
				pushed++
				continue
			}
			failed++
			zap.L().Warn("lead push failed", zap.Strings("errors", r.Errors))
		}

		zap.L().Info("push complete",
			zap.Int("pushed", pushed),
			zap.Int("failed", failed),
			zap.Int("already_pushed", len(leads)-len(records)),
		)
		return nil
	},
}

// buildLeadRecord maps a lead onto standard Salesforce Lead fields. Scraped
// posts carry no company, so Company is a fixed placeholder the sales team
// fills in after contact.
func buildLeadRecord(lead *model.Lead) map[string]any {
	description := lead.Content
	if len(description) > sfDescriptionLimit {
		description = description[:sfDescriptionLimit]
	}

	record := map[string]any{
		"LastName":    lead.Author,
		"Company":     "Unknown",
		"Website":     lead.URL,
		"Description": description,
		"LeadSource":  string(lead.Source),
	}
	if q := lead.Qualification; q != nil {
		tags := make([]string, len(q.ServiceMatch))
		for i, tag := range q.ServiceMatch {
			tags[i] = string(tag)
		}
		record["Rating"] = confidenceRating(q.Confidence)
		record["Title"] = strings.Join(tags, ", ")
		record["Description"] = fmt.Sprintf("%s\n\nVerdict: %s (%.2f)", description, q.Reason, q.Confidence)
	}
	return record
}

// confidenceRating buckets confidence into the standard Lead Rating picklist.
func confidenceRating(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "Hot"
	case confidence >= 0.8:
		return "Warm"
	default:
		return "Cold"
	}
}

func init() {
	pushCmd.Flags().Float64Var(&pushMinConfidence, "min-confidence", 0, "acceptance threshold (default from config)")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "report what would be pushed without writing")
	rootCmd.AddCommand(pushCmd)
}
