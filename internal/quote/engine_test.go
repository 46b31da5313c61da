package quote

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmc-uruguay/panelin-server/internal/catalog"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	panels := []catalog.Panel{
		{SKU: "PNL-T-100", Name: "Isodec EPS", Line: "isodec", Use: catalog.UseRoof,
			ThicknessMM: 100, UsefulWidthM: 1.0, PricePerM2: 30, UValue: 0.36, MaxSpanM: 3.6, InStock: true},
		{SKU: "PNL-T-150", Name: "Isodec EPS", Line: "isodec", Use: catalog.UseRoof,
			ThicknessMM: 150, UsefulWidthM: 1.0, PricePerM2: 38, UValue: 0.24, MaxSpanM: 4.5, InStock: true},
		{SKU: "PNL-P-100", Name: "Isowall EPS", Line: "isowall", Use: catalog.UseWall,
			ThicknessMM: 100, UsefulWidthM: 1.14, PricePerM2: 28, UValue: 0.36, MaxSpanM: 4.2, InStock: true},
	}
	accessories := []catalog.Accessory{
		{SKU: "ACC-GOT", Name: "Gotero", Kind: catalog.KindGotero, Unit: "barra", Price: 10, BarLengthM: 3},
		{SKU: "ACC-PU", Name: "Perfil U", Kind: catalog.KindPerfilU, Unit: "barra", Price: 9, BarLengthM: 3},
		{SKU: "ACC-TOR", Name: "Tornillos autoperforantes", Kind: catalog.KindTornillo, Unit: "pack", Price: 12, PackSize: 100},
		{SKU: "ACC-SEL", Name: "Sellador", Kind: catalog.KindSellador, Unit: "unidad", Price: 8},
	}

	c, err := catalog.New(panels, accessories)
	require.NoError(t, err)
	return c
}

func TestCalculateRoofQuote(t *testing.T) {
	engine := NewEngine(newTestCatalog(t))

	q, err := engine.Calculate(Request{
		PanelSKU:           "PNL-T-100",
		LengthM:            6,
		WidthM:             4.5,
		IncludeScrews:      true,
		IncludeAccessories: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, q.BOM.PanelCount)
	assert.InDelta(t, 30.0, q.BOM.CoveredAreaM2, 0.001)

	// ceil(6 / 3.6) + 1
	assert.Equal(t, 3, q.BOM.Supports)
	assert.Equal(t, 15, q.BOM.FixationPoints)

	// roof panels take two screws per fixation point
	assert.Equal(t, 30, q.BOM.Screws)
	assert.Equal(t, 1, q.BOM.ScrewPacks)

	// both eaves, ceil(4.5 / 3) bars each
	assert.Equal(t, 4, q.BOM.GoteroBars)
	assert.Equal(t, 0, q.BOM.PerfilUBars)
	assert.Equal(t, 3, q.BOM.SealantUnits)

	assert.InDelta(t, 976.0, q.Subtotal, 0.001)
	assert.InDelta(t, 214.72, q.IVA, 0.001)
	assert.InDelta(t, 1190.72, q.Total, 0.001)
	assert.Equal(t, "USD", q.Currency)
	assert.NotEmpty(t, q.ID)
	assert.Empty(t, q.Warnings)
}

func TestCalculateWallQuote(t *testing.T) {
	engine := NewEngine(newTestCatalog(t))

	q, err := engine.Calculate(Request{
		PanelSKU:           "PNL-P-100",
		LengthM:            3,
		WidthM:             10,
		IncludeScrews:      true,
		IncludeAccessories: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 9, q.BOM.PanelCount)
	assert.Equal(t, 2, q.BOM.Supports)
	assert.Equal(t, 18, q.BOM.FixationPoints)

	// wall panels take one screw per fixation point
	assert.Equal(t, 18, q.BOM.Screws)
	assert.Equal(t, 1, q.BOM.ScrewPacks)

	// U profile channels top and bottom
	assert.Equal(t, 8, q.BOM.PerfilUBars)
	assert.Equal(t, 0, q.BOM.GoteroBars)
}

func TestCalculateMinimumSupports(t *testing.T) {
	engine := NewEngine(newTestCatalog(t))

	// a job shorter than the span still needs a support at each end
	q, err := engine.Calculate(Request{PanelSKU: "PNL-T-100", LengthM: 2, WidthM: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, q.BOM.Supports)
}

func TestCalculateRespectsRequestedSpan(t *testing.T) {
	engine := NewEngine(newTestCatalog(t))

	q, err := engine.Calculate(Request{PanelSKU: "PNL-T-100", LengthM: 6, WidthM: 1, FreeSpanM: 2})
	require.NoError(t, err)
	// ceil(6 / 2) + 1
	assert.Equal(t, 4, q.BOM.Supports)
}

func TestCalculateSpanExceeded(t *testing.T) {
	engine := NewEngine(newTestCatalog(t))

	_, err := engine.Calculate(Request{PanelSKU: "PNL-T-100", LengthM: 6, WidthM: 4.5, FreeSpanM: 4.0})
	require.Error(t, err)

	var spanErr *SpanError
	require.True(t, errors.As(err, &spanErr))
	assert.Equal(t, "PNL-T-100", spanErr.SKU)
	assert.InDelta(t, 4.0, spanErr.RequestedM, 0.001)
	assert.InDelta(t, 3.6, spanErr.MaxM, 0.001)
	assert.Equal(t, "PNL-T-150", spanErr.SuggestedSKU)
}

func TestCalculateSpanExceededNoSuggestion(t *testing.T) {
	engine := NewEngine(newTestCatalog(t))

	_, err := engine.Calculate(Request{PanelSKU: "PNL-T-150", LengthM: 6, WidthM: 4.5, FreeSpanM: 5.0})
	require.Error(t, err)

	var spanErr *SpanError
	require.True(t, errors.As(err, &spanErr))
	assert.Empty(t, spanErr.SuggestedSKU)
}

func TestCalculateUnknownSKU(t *testing.T) {
	engine := NewEngine(newTestCatalog(t))

	_, err := engine.Calculate(Request{PanelSKU: "NOPE", LengthM: 6, WidthM: 4.5})
	var nf *catalog.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "NOPE", nf.SKU)
}

func TestCalculateValidation(t *testing.T) {
	engine := NewEngine(newTestCatalog(t))

	cases := []struct {
		name  string
		req   Request
		field string
	}{
		{"missing sku", Request{LengthM: 6, WidthM: 4}, "panel_sku"},
		{"zero length", Request{PanelSKU: "PNL-T-100", WidthM: 4}, "length_m"},
		{"negative width", Request{PanelSKU: "PNL-T-100", LengthM: 6, WidthM: -1}, "width_m"},
		{"negative span", Request{PanelSKU: "PNL-T-100", LengthM: 6, WidthM: 4, FreeSpanM: -1}, "free_span_m"},
		{"length out of range", Request{PanelSKU: "PNL-T-100", LengthM: 31, WidthM: 4}, "dimensions"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Calculate(tc.req)
			var valErr *ValidationError
			require.True(t, errors.As(err, &valErr))
			assert.Equal(t, tc.field, valErr.Field)
		})
	}
}

func TestCalculateWithSavings(t *testing.T) {
	engine := NewEngine(newTestCatalog(t))

	q, err := engine.Calculate(Request{PanelSKU: "PNL-T-100", LengthM: 6, WidthM: 4.5, ClimateZone: "sur"})
	require.NoError(t, err)
	require.NotNil(t, q.Savings)
	assert.Equal(t, "sur", q.Savings.ClimateZone)
	assert.Greater(t, q.Savings.AnnualKWh, 0.0)
	assert.Greater(t, q.Savings.AnnualUSD, 0.0)
}

func TestCalculateUnknownZoneWarns(t *testing.T) {
	engine := NewEngine(newTestCatalog(t))

	q, err := engine.Calculate(Request{PanelSKU: "PNL-T-100", LengthM: 6, WidthM: 4.5, ClimateZone: "este"})
	require.NoError(t, err)
	assert.Nil(t, q.Savings)
	require.Len(t, q.Warnings, 1)
	assert.Contains(t, q.Warnings[0], "este")
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.24, round2(1.235))
	assert.Equal(t, 1.23, round2(1.2349))
	assert.Equal(t, 0.0, round2(0))
}
