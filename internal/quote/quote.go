// Package quote implements the deterministic bill-of-materials and
// pricing rules for isopanel jobs. All arithmetic the assistant quotes
// with happens here, never inside the LLM.
package quote

import (
	"fmt"
	"time"
)

// IVARate is the Uruguayan VAT applied on the subtotal. KB prices are
// tax-exclusive.
const IVARate = 0.22

// Request describes the job to quote.
type Request struct {
	PanelSKU string  `json:"panel_sku"`
	LengthM  float64 `json:"length_m"`
	WidthM   float64 `json:"width_m"`
	// FreeSpanM is the largest distance between supports the structure
	// offers. Zero means supports can be added wherever needed.
	FreeSpanM          float64 `json:"free_span_m,omitempty"`
	IncludeAccessories bool    `json:"include_accessories"`
	IncludeScrews      bool    `json:"include_screws"`
	// ClimateZone selects degree-hours for the savings estimate
	// (norte, centro, sur). Empty skips the estimate.
	ClimateZone string `json:"climate_zone,omitempty"`
}

// LineItem is one billed row of the quote.
type LineItem struct {
	SKU         string  `json:"sku"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// BOM is the physical breakdown behind the line items.
type BOM struct {
	PanelCount     int     `json:"panel_count"`
	PanelLengthM   float64 `json:"panel_length_m"`
	CoveredAreaM2  float64 `json:"covered_area_m2"`
	Supports       int     `json:"supports"`
	FixationPoints int     `json:"fixation_points"`
	Screws         int     `json:"screws"`
	ScrewPacks     int     `json:"screw_packs"`
	GoteroBars     int     `json:"gotero_bars"`
	PerfilUBars    int     `json:"perfil_u_bars"`
	SealantUnits   int     `json:"sealant_units"`
}

// Quote is the complete calculation result.
type Quote struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	PanelSKU  string           `json:"panel_sku"`
	Items     []LineItem       `json:"items"`
	BOM       BOM              `json:"bom"`
	Currency  string           `json:"currency"`
	Subtotal  float64          `json:"subtotal"`
	IVA       float64          `json:"iva"`
	Total     float64          `json:"total"`
	Savings   *SavingsEstimate `json:"savings,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// SpanError reports that the requested free span exceeds the panel's
// autoportancia. SuggestedSKU carries the thinnest panel of the same line
// that would work, when one exists.
type SpanError struct {
	SKU          string
	RequestedM   float64
	MaxM         float64
	SuggestedSKU string
}

func (e *SpanError) Error() string {
	msg := fmt.Sprintf("panel %s: requested span %.2fm exceeds autoportancia %.2fm", e.SKU, e.RequestedM, e.MaxM)
	if e.SuggestedSKU != "" {
		msg += fmt.Sprintf(" (consider %s)", e.SuggestedSKU)
	}
	return msg
}

// ValidationError reports rejected request input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (r *Request) validate() error {
	if r.PanelSKU == "" {
		return &ValidationError{Field: "panel_sku", Reason: "required"}
	}
	if r.LengthM <= 0 {
		return &ValidationError{Field: "length_m", Reason: "must be positive"}
	}
	if r.WidthM <= 0 {
		return &ValidationError{Field: "width_m", Reason: "must be positive"}
	}
	if r.FreeSpanM < 0 {
		return &ValidationError{Field: "free_span_m", Reason: "must not be negative"}
	}
	if r.LengthM > 30 || r.WidthM > 100 {
		return &ValidationError{Field: "dimensions", Reason: "outside quotable range"}
	}
	return nil
}
