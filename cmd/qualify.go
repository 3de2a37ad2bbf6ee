package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

var (
	qualifyService       string
	qualifyMaxLeads      int
	qualifyMinConfidence float64
	qualifyLimit         int
	qualifyAll           bool
)

var qualifyCmd = &cobra.Command{
	Use:   "qualify",
	Short: "Run LLM qualification over stored leads",
	Long:  "Evaluates stored leads that have no verdict yet. With --all, re-evaluates every lead regardless of existing verdicts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		restrict, err := parseRestrict(qualifyService)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		leads, err := st.ListLeads(ctx, store.LeadFilter{Limit: qualifyLimit})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}

		var pending []*model.Lead
		for i := range leads {
			if qualifyAll || leads[i].Qualification == nil {
				pending = append(pending, &leads[i])
			}
		}
		if len(pending) == 0 {
			zap.L().Info("no leads pending qualification")
			return nil
		}

		orch, err := initOrchestrator(qualifyMaxLeads, restrict, qualifyMinConfidence)
		if err != nil {
			return err
		}

		outcome, err := orch.QualifyAll(ctx, pending)
		if err != nil {
			return eris.Wrap(err, "qualify leads")
		}

		for _, lead := range pending {
			if lead.Qualification == nil {
				continue
			}
			if _, err := st.UpsertLead(ctx, lead); err != nil {
				return eris.Wrapf(err, "store verdict for %s", lead.URL)
			}
		}

		zap.L().Info("qualification complete",
			zap.Int("pending", len(pending)),
			zap.Int("evaluated", outcome.Evaluated),
			zap.Int("qualified", outcome.Qualified),
			zap.Int("accepted", outcome.Accepted),
			zap.Int("failed", outcome.Failed),
			zap.Int("skipped", outcome.Skipped),
		)
		return nil
	},
}

func init() {
	qualifyCmd.Flags().StringVar(&qualifyService, "service", "", "restrict qualification to one service offering")
	qualifyCmd.Flags().IntVar(&qualifyMaxLeads, "max-leads", 0, "evaluate at most this many leads (0 = unlimited)")
	qualifyCmd.Flags().Float64Var(&qualifyMinConfidence, "min-confidence", 0, "acceptance threshold (default from config)")
	qualifyCmd.Flags().IntVar(&qualifyLimit, "limit", 0, "max stored leads to consider (0 = all)")
	qualifyCmd.Flags().BoolVar(&qualifyAll, "all", false, "re-evaluate leads that already have a verdict")
	rootCmd.AddCommand(qualifyCmd)
}
