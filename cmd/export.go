package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/export"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

var (
	exportOut           string
	exportMinConfidence float64
	exportAll           bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads to an XLSX workbook",
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

		minConfidence := exportMinConfidence
		if minConfidence <= 0 {
			minConfidence = cfg.Qualify.MinConfidence
		}

		leads, err := exportLeadSet(cmd, st, minConfidence)
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			zap.L().Info("nothing to export")
			return nil
		}

		out := exportOut
		if out == "" {
			out = cfg.Export.Path
		}
		if err := export.WriteXLSX(out, leads); err != nil {
			return eris.Wrap(err, "export leads")
		}

		zap.L().Info("export complete",
			zap.Int("leads", len(leads)),
			zap.String("path", out),
		)
		return nil
	},
}

func exportLeadSet(cmd *cobra.Command, st store.Store, minConfidence float64) ([]model.Lead, error) {
	ctx := cmd.Context()
	if exportAll {
		leads, err := st.ListLeads(ctx, store.LeadFilter{})
		if err != nil {
			return nil, eris.Wrap(err, "list leads")
		}
		return leads, nil
	}
	leads, err := st.ListQualified(ctx, minConfidence)
	if err != nil {
		return nil, eris.Wrap(err, "list qualified leads")
	}
	return leads, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default from config)")
	exportCmd.Flags().Float64Var(&exportMinConfidence, "min-confidence", 0, "acceptance threshold (default from config)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every stored lead, not just accepted ones")
	rootCmd.AddCommand(exportCmd)
}
