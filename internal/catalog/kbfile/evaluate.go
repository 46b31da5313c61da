package kbfile

import (
	"fmt"
	"sort"
	"time"

	"github.com/bmc-uruguay/panelin-server/internal/catalog"
)

// Severity of a single finding.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Finding is one problem the evaluator spotted in a KB document.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	SKU      string   `json:"sku,omitempty"`
	Message  string   `json:"message"`
}

// Report aggregates findings with an overall 0-100 quality score.
type Report struct {
	Findings []Finding `json:"findings"`
	Errors   int       `json:"errors"`
	Warnings int       `json:"warnings"`
	Score    int       `json:"score"`
}

// maxStaleness before the price list is considered outdated.
const maxStaleness = 180 * 24 * time.Hour

// Evaluate audits a KB document before it is shipped to the assistant.
// It does not stop at the first problem: the full report is what gets
// reviewed when a new price list lands.
func Evaluate(doc *Document, now time.Time) *Report {
	r := &Report{}

	if doc.Currency != "" && doc.Currency != "USD" && doc.Currency != "UYU" {
		r.add(SeverityWarn, "currency_unknown", "", fmt.Sprintf("unexpected currency %q", doc.Currency))
	}

	if doc.UpdatedAt == "" {
		r.add(SeverityWarn, "updated_at_missing", "", "document has no updated_at")
	} else if ts, err := time.Parse("2006-01-02", doc.UpdatedAt); err != nil {
		r.add(SeverityError, "updated_at_invalid", "", fmt.Sprintf("updated_at %q is not YYYY-MM-DD", doc.UpdatedAt))
	} else if now.Sub(ts) > maxStaleness {
		r.add(SeverityWarn, "updated_at_stale", "", fmt.Sprintf("price list is older than %d days", int(maxStaleness.Hours()/24)))
	}

	seen := map[string]bool{}
	for _, p := range doc.Panels {
		if p.SKU == "" {
			r.add(SeverityError, "panel_sku_missing", "", fmt.Sprintf("panel %q has no sku", p.Name))
			continue
		}
		if seen[p.SKU] {
			r.add(SeverityError, "sku_duplicate", p.SKU, "sku appears more than once")
		}
		seen[p.SKU] = true

		if p.Name == "" {
			r.add(SeverityError, "panel_name_missing", p.SKU, "panel has no name")
		}
		if p.PricePerM2 <= 0 {
			r.add(SeverityError, "price_invalid", p.SKU, "price_per_m2 must be positive")
		}
		if p.UsefulWidthM <= 0 {
			r.add(SeverityError, "width_invalid", p.SKU, "useful_width_m must be positive")
		}
		if p.MaxSpanM <= 0 {
			r.add(SeverityError, "span_missing", p.SKU, "max_span_m (autoportancia) must be positive")
		}
		if p.UValue <= 0 {
			r.add(SeverityWarn, "u_value_missing", p.SKU, "u_value missing; energy savings cannot be estimated")
		}
		switch p.Use {
		case catalog.UseRoof, catalog.UseWall:
		case "":
			r.add(SeverityWarn, "use_missing", p.SKU, "panel has no use (techo/pared)")
		default:
			r.add(SeverityError, "use_invalid", p.SKU, fmt.Sprintf("unknown use %q", p.Use))
		}
	}

	checkSpanMonotonic(doc.Panels, r)

	kinds := map[catalog.AccessoryKind]bool{}
	for _, a := range doc.Accessories {
		if a.SKU == "" {
			r.add(SeverityError, "accessory_sku_missing", "", fmt.Sprintf("accessory %q has no sku", a.Name))
			continue
		}
		if seen[a.SKU] {
			r.add(SeverityError, "sku_duplicate", a.SKU, "sku appears more than once")
		}
		seen[a.SKU] = true
		kinds[a.Kind] = true

		if a.Price <= 0 {
			r.add(SeverityError, "price_invalid", a.SKU, "price must be positive")
		}
		switch a.Kind {
		case catalog.KindGotero, catalog.KindPerfilU, catalog.KindCumbrera:
			if a.BarLengthM <= 0 {
				r.add(SeverityError, "bar_length_missing", a.SKU, "profile accessory needs bar_length_m")
			}
		case catalog.KindTornillo:
			if a.PackSize <= 0 {
				r.add(SeverityError, "pack_size_missing", a.SKU, "screw accessory needs pack_size")
			}
		}
	}

	// A roof quote cannot be completed without these kinds.
	for _, k := range []catalog.AccessoryKind{catalog.KindGotero, catalog.KindTornillo, catalog.KindPerfilU} {
		if !kinds[k] {
			r.add(SeverityWarn, "kind_missing", "", fmt.Sprintf("no accessory of kind %q; quotes will omit it", k))
		}
	}

	r.Score = 100 - 10*r.Errors - 3*r.Warnings
	if r.Score < 0 {
		r.Score = 0
	}
	return r
}

// checkSpanMonotonic flags lines where a thicker panel claims a shorter
// autoportancia than a thinner one, which is physically wrong for the
// same line and usually means a typo in the KB.
func checkSpanMonotonic(panels []catalog.Panel, r *Report) {
	byLine := map[string][]catalog.Panel{}
	for _, p := range panels {
		if p.Line == "" || p.MaxSpanM <= 0 {
			continue
		}
		byLine[p.Line] = append(byLine[p.Line], p)
	}
	for line, ps := range byLine {
		sort.Slice(ps, func(i, j int) bool { return ps[i].ThicknessMM < ps[j].ThicknessMM })
		for i := 1; i < len(ps); i++ {
			if ps[i].MaxSpanM < ps[i-1].MaxSpanM {
				r.add(SeverityError, "span_not_monotonic", ps[i].SKU,
					fmt.Sprintf("line %s: %dmm spans %.2fm but %dmm spans %.2fm",
						line, ps[i].ThicknessMM, ps[i].MaxSpanM, ps[i-1].ThicknessMM, ps[i-1].MaxSpanM))
			}
		}
	}
}

func (r *Report) add(sev Severity, code, sku, msg string) {
	r.Findings = append(r.Findings, Finding{Severity: sev, Code: code, SKU: sku, Message: msg})
	switch sev {
	case SeverityError:
		r.Errors++
	case SeverityWarn:
		r.Warnings++
	}
}

// HasErrors reports whether any finding is error severity.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}
