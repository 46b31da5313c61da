package quote

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/bmc-uruguay/panelin-server/internal/catalog"
	logx "github.com/bmc-uruguay/panelin-server/pkg/logger"
)

const (
	screwsPerPointRoof = 2
	screwsPerPointWall = 1
	// one sealant unit covers roughly 10 m2 of joints
	sealantCoverageM2 = 10.0
)

// Engine computes quotes against a catalog snapshot.
type Engine struct {
	catalog *catalog.Catalog
}

func NewEngine(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c}
}

// Calculate runs the full BOM and pricing for a request.
//
// Rules:
//   - panel count = ceil(width / useful width), panels cut at job length
//   - supports = ceil(length / span) + 1, never fewer than 2, where span
//     is the requested free span capped by the panel's autoportancia
//   - a requested free span above the autoportancia is rejected
//   - fixation points = panels x supports; screws per point depend on use
//   - gotero bars on both eaves (roof), U profiles top and bottom (wall)
func (e *Engine) Calculate(req Request) (*Quote, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	panel, err := e.catalog.PanelBySKU(req.PanelSKU)
	if err != nil {
		return nil, err
	}

	span := panel.MaxSpanM
	if req.FreeSpanM > 0 {
		if req.FreeSpanM > panel.MaxSpanM {
			return nil, &SpanError{
				SKU:          panel.SKU,
				RequestedM:   req.FreeSpanM,
				MaxM:         panel.MaxSpanM,
				SuggestedSKU: e.suggestForSpan(panel, req.FreeSpanM),
			}
		}
		span = req.FreeSpanM
	}

	q := &Quote{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		PanelSKU:  panel.SKU,
		Currency:  "USD",
	}

	q.BOM.PanelCount = int(math.Ceil(req.WidthM / panel.UsefulWidthM))
	q.BOM.PanelLengthM = req.LengthM
	q.BOM.CoveredAreaM2 = round2(float64(q.BOM.PanelCount) * panel.UsefulWidthM * req.LengthM)

	q.BOM.Supports = int(math.Ceil(req.LengthM/span)) + 1
	if q.BOM.Supports < 2 {
		q.BOM.Supports = 2
	}
	q.BOM.FixationPoints = q.BOM.PanelCount * q.BOM.Supports

	q.addItem(LineItem{
		SKU:         panel.SKU,
		Description: fmt.Sprintf("%s %dmm", panel.Name, panel.ThicknessMM),
		Quantity:    q.BOM.CoveredAreaM2,
		Unit:        "m2",
		UnitPrice:   panel.PricePerM2,
	})

	if req.IncludeScrews {
		e.addScrews(q, panel, req)
	}
	if req.IncludeAccessories {
		e.addAccessories(q, panel, req)
	}

	for _, it := range q.Items {
		q.Subtotal += it.Total
	}
	q.Subtotal = round2(q.Subtotal)
	q.IVA = round2(q.Subtotal * IVARate)
	q.Total = round2(q.Subtotal + q.IVA)

	if req.ClimateZone != "" {
		s, err := EstimateSavings(panel, q.BOM.CoveredAreaM2, req.ClimateZone)
		if err != nil {
			q.Warnings = append(q.Warnings, err.Error())
		} else {
			q.Savings = s
		}
	}

	logx.Debug().
		Str("quote_id", q.ID).
		Str("panel_sku", panel.SKU).
		Int("panels", q.BOM.PanelCount).
		Int("supports", q.BOM.Supports).
		Float64("total", q.Total).
		Msg("quote calculated")

	return q, nil
}

func (e *Engine) addScrews(q *Quote, panel catalog.Panel, req Request) {
	perPoint := screwsPerPointWall
	if panel.Use == catalog.UseRoof {
		perPoint = screwsPerPointRoof
	}
	q.BOM.Screws = q.BOM.FixationPoints * perPoint

	screw, ok := e.catalog.AccessoryByKind(catalog.KindTornillo)
	if !ok || screw.PackSize <= 0 {
		q.Warnings = append(q.Warnings, "screws omitted: no screw pack in catalog")
		return
	}
	q.BOM.ScrewPacks = ceilDiv(q.BOM.Screws, screw.PackSize)
	q.addItem(LineItem{
		SKU:         screw.SKU,
		Description: screw.Name,
		Quantity:    float64(q.BOM.ScrewPacks),
		Unit:        screw.Unit,
		UnitPrice:   screw.Price,
	})
}

func (e *Engine) addAccessories(q *Quote, panel catalog.Panel, req Request) {
	switch panel.Use {
	case catalog.UseRoof:
		// drip edge along both eaves
		gotero, ok := e.catalog.AccessoryByKind(catalog.KindGotero)
		if !ok || gotero.BarLengthM <= 0 {
			q.Warnings = append(q.Warnings, "gotero omitted: not in catalog")
		} else {
			q.BOM.GoteroBars = ceilMeters(req.WidthM, gotero.BarLengthM) * 2
			q.addItem(LineItem{
				SKU:         gotero.SKU,
				Description: gotero.Name,
				Quantity:    float64(q.BOM.GoteroBars),
				Unit:        gotero.Unit,
				UnitPrice:   gotero.Price,
			})
		}
	case catalog.UseWall:
		// U profile channels top and bottom
		perfil, ok := e.catalog.AccessoryByKind(catalog.KindPerfilU)
		if !ok || perfil.BarLengthM <= 0 {
			q.Warnings = append(q.Warnings, "perfil U omitted: not in catalog")
		} else {
			q.BOM.PerfilUBars = ceilMeters(req.WidthM, perfil.BarLengthM) * 2
			q.addItem(LineItem{
				SKU:         perfil.SKU,
				Description: perfil.Name,
				Quantity:    float64(q.BOM.PerfilUBars),
				Unit:        perfil.Unit,
				UnitPrice:   perfil.Price,
			})
		}
	}

	sellador, ok := e.catalog.AccessoryByKind(catalog.KindSellador)
	if ok {
		q.BOM.SealantUnits = int(math.Ceil(q.BOM.CoveredAreaM2 / sealantCoverageM2))
		q.addItem(LineItem{
			SKU:         sellador.SKU,
			Description: sellador.Name,
			Quantity:    float64(q.BOM.SealantUnits),
			Unit:        sellador.Unit,
			UnitPrice:   sellador.Price,
		})
	}
}

// suggestForSpan finds the thinnest panel in the same line whose
// autoportancia covers the requested span.
func (e *Engine) suggestForSpan(panel catalog.Panel, span float64) string {
	for _, p := range e.catalog.PanelsByLine(panel.Line) {
		if p.MaxSpanM >= span {
			return p.SKU
		}
	}
	return ""
}

func (q *Quote) addItem(it LineItem) {
	it.Total = round2(it.Quantity * it.UnitPrice)
	q.Items = append(q.Items, it)
}

// round2 rounds money half-up to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// ceilMeters returns how many fixed-length bars cover the given run.
func ceilMeters(run, barLen float64) int {
	return int(math.Ceil(run / barLen))
}
