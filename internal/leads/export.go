package leads

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

var csvHeader = []string{
	"id",
	"timestamp",
	"summary",
	"tier",
	"score",
	"project_type",
	"city",
	"scope",
	"budget",
	"timeline",
	"contact_name",
	"contact_phone",
	"contact_email",
	"wants_callback",
	"do_not_contact",
	"reasons",
}

// ExportJSON writes the records as an indented JSON array.
func ExportJSON(w io.Writer, records []*LeadRecord) error {
	if records == nil {
		records = []*LeadRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("leads: export json: %w", err)
	}
	return nil
}

// ExportCSV writes one row per record with a fixed header. Unknown fields are
// empty and refused fields read "refused".
func ExportCSV(w io.Writer, records []*LeadRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("leads: export csv: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("leads: export csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("leads: export csv: %w", err)
	}
	return nil
}

func csvRow(rec *LeadRecord) []string {
	f := rec.Fields
	return []string{
		rec.ID,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.Summary,
		strconv.Itoa(rec.Tier),
		strconv.Itoa(rec.Score),
		cell(f.ProjectType),
		cell(f.City),
		cell(f.Scope),
		cell(f.Budget),
		cell(f.Timeline),
		cell(f.ContactName),
		cell(f.ContactPhone),
		cell(f.ContactEmail),
		cell(f.WantsCallback),
		strconv.FormatBool(f.DoNotContact),
		strings.Join(rec.Reasons, "; "),
	}
}

func cell[T comparable](s qualify.Slot[T]) string {
	if s.IsRefused() {
		return qualify.Refused
	}
	return s.String()
}
