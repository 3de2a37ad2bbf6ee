// Package export writes qualified leads to spreadsheet files for the sales
// team.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadscout/internal/model"
)

var xlsxHeaders = []string{
	"Author",
	"Source",
	"Content",
	"URL",
	"Engagement Score",
	"Is Qualified",
	"Confidence",
	"Reason",
	"Service Match",
	"Timestamp",
}

// WriteXLSX writes leads to an XLSX workbook, sorted by confidence
// descending so the best leads sit at the top of the sheet. Leads without a
// verdict sort last.
func WriteXLSX(path string, leads []model.Lead) error {
	sorted := make([]model.Lead, len(leads))
	copy(sorted, leads)
	sort.SliceStable(sorted, func(i, j int) bool {
		return confidence(&sorted[i]) > confidence(&sorted[j])
	})

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeaders {
		header.AddCell().SetString(h)
	}

	for i := range sorted {
		writeLeadRow(sheet.AddRow(), &sorted[i])
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func writeLeadRow(row *xlsx.Row, lead *model.Lead) {
	row.AddCell().SetString(lead.Author)
	row.AddCell().SetString(string(lead.Source))
	row.AddCell().SetString(lead.Content)
	row.AddCell().SetString(lead.URL)
	row.AddCell().SetInt(lead.Engagement)

	q := lead.Qualification
	if q == nil {
		row.AddCell().SetString("No")
		row.AddCell().SetString("")
		row.AddCell().SetString("not evaluated")
		row.AddCell().SetString("")
	} else {
		if q.IsQualified {
			row.AddCell().SetString("Yes")
		} else {
			row.AddCell().SetString("No")
		}
		row.AddCell().SetString(fmt.Sprintf("%.2f", q.Confidence))
		row.AddCell().SetString(q.Reason)
		row.AddCell().SetString(joinTags(q.ServiceMatch))
	}

	row.AddCell().SetString(lead.Timestamp.UTC().Format(time.RFC3339))
}

func confidence(lead *model.Lead) float64 {
	if lead.Qualification == nil {
		return -1
	}
	return lead.Qualification.Confidence
}

func joinTags(tags []model.ServiceTag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
