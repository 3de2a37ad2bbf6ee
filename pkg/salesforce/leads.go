package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// existingLead holds the fields selected when checking for already-pushed leads.
type existingLead struct {
	ID      string `json:"Id"`
	Website string `json:"Website"`
}

// ExistingWebsites returns the subset of websites that already have a record
// on the given SObject. Queries are chunked to stay inside SOQL length limits.
func ExistingWebsites(ctx context.Context, c Client, sObjectName string, websites []string) (map[string]bool, error) {
	existing := make(map[string]bool)

	for start := 0; start < len(websites); start += maxBatchSize {
		end := min(start+maxBatchSize, len(websites))

		quoted := make([]string, 0, end-start)
		for _, w := range websites[start:end] {
			quoted = append(quoted, "'"+escapeSoql(w)+"'")
		}
		soql := fmt.Sprintf(
			"SELECT Id, Website FROM %s WHERE Website IN (%s)",
			sObjectName, strings.Join(quoted, ", "),
		)

		var records []existingLead
		if err := c.Query(ctx, soql, &records); err != nil {
			return nil, eris.Wrap(err, "sf: query existing websites")
		}
		for _, r := range records {
			existing[r.Website] = true
		}
	}

	return existing, nil
}

// PushLeads inserts lead records in collection batches. Every record must
// carry LastName and Company, which Salesforce requires on the Lead object.
func PushLeads(ctx context.Context, c Client, sObjectName string, records []map[string]any) ([]CollectionResult, error) {
	for i, rec := range records {
		if rec["LastName"] == nil || rec["LastName"] == "" {
			return nil, eris.New(fmt.Sprintf("sf: record %d missing LastName", i))
		}
		if rec["Company"] == nil || rec["Company"] == "" {
			return nil, eris.New(fmt.Sprintf("sf: record %d missing Company", i))
		}
	}

	var results []CollectionResult
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))

		batch, err := c.InsertCollection(ctx, sObjectName, records[start:end])
		if err != nil {
			return results, eris.Wrap(err, fmt.Sprintf("sf: push leads batch at %d", start))
		}
		results = append(results, batch...)
	}
	return results, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
