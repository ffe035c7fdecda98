package promo

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"loyalty-quote/internal/model"

	"github.com/shopspring/decimal"
)

// expiryLayout is the date format of the expires_at column.
const expiryLayout = "2006-01-02"

// mapCatalog implements Catalog using a map keyed by upper-cased code.
type mapCatalog struct {
	records map[string]model.PromotionRecord
}

// newMapCatalog creates an empty map-based catalog.
func newMapCatalog(capacity int) *mapCatalog {
	return &mapCatalog{
		records: make(map[string]model.PromotionRecord, capacity),
	}
}

// Lookup finds a record by code, case-insensitively.
func (c *mapCatalog) Lookup(code string) (model.PromotionRecord, bool) {
	r, ok := c.records[normaliseCode(code)]
	return r, ok
}

// Size returns the number of records in the catalog.
func (c *mapCatalog) Size() int {
	return len(c.records)
}

// Add inserts or replaces a record.
func (c *mapCatalog) Add(r model.PromotionRecord) {
	c.records[normaliseCode(r.Code)] = r
}

// Records returns every record in no particular order.
func (c *mapCatalog) Records() []model.PromotionRecord {
	out := make([]model.PromotionRecord, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r)
	}
	return out
}

// merge copies every record of other into c, replacing duplicates.
func (c *mapCatalog) merge(other Catalog) {
	for _, r := range other.Records() {
		c.Add(r)
	}
}

func normaliseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// parseCatalog reads CSV rows of code,percent,expires_at. A leading header
// row and blank lines are skipped; any other malformed row is an error.
func parseCatalog(ctx context.Context, r io.Reader) (*mapCatalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	catalog := newMapCatalog(1024)
	line := 0
	for {
		if line%10_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row: %w", err)
		}
		line++

		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "code") {
			continue
		}

		record, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", line, err)
		}
		catalog.Add(record)
	}

	return catalog, nil
}

func parseRecord(row []string) (model.PromotionRecord, error) {
	code := strings.TrimSpace(row[0])
	if code == "" {
		return model.PromotionRecord{}, fmt.Errorf("empty code")
	}

	percent, err := decimal.NewFromString(strings.TrimSpace(row[1]))
	if err != nil {
		return model.PromotionRecord{}, fmt.Errorf("invalid percent %q: %w", row[1], err)
	}
	if !model.InDoubleRange(percent) {
		return model.PromotionRecord{}, fmt.Errorf("percent out of range")
	}

	expiresAt, err := time.Parse(expiryLayout, strings.TrimSpace(row[2]))
	if err != nil {
		return model.PromotionRecord{}, fmt.Errorf("invalid expires_at %q: %w", row[2], err)
	}

	return model.PromotionRecord{
		Code:      code,
		Percent:   percent,
		ExpiresAt: expiresAt,
	}, nil
}
