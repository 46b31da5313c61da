package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmc-uruguay/panelin-server/internal/catalog"
	"github.com/bmc-uruguay/panelin-server/internal/quote"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	panels := []catalog.Panel{
		{SKU: "ISD-EPS-100", Name: "Isodec EPS", Line: "Isodec EPS", Use: catalog.UseRoof,
			ThicknessMM: 100, UsefulWidthM: 1.0, PricePerM2: 31.9, UValue: 0.36, MaxSpanM: 3.6, InStock: true,
			Description: "Panel de techo autoportante"},
		{SKU: "ISD-EPS-150", Name: "Isodec EPS", Line: "Isodec EPS", Use: catalog.UseRoof,
			ThicknessMM: 150, UsefulWidthM: 1.0, PricePerM2: 39.8, UValue: 0.24, MaxSpanM: 4.5, InStock: true,
			Description: "Panel de techo autoportante"},
	}
	accessories := []catalog.Accessory{
		{SKU: "ACC-TOR", Name: "Tornillos", Kind: catalog.KindTornillo, Unit: "pack", Price: 18, PackSize: 100},
	}

	cat, err := catalog.New(panels, accessories)
	require.NoError(t, err)
	return NewRegistry(cat, quote.NewEngine(cat))
}

func invoke(t *testing.T, bt tool.BaseTool, args string) string {
	t.Helper()
	inv, ok := bt.(tool.InvokableTool)
	require.True(t, ok)
	out, err := inv.InvokableRun(context.Background(), args)
	require.NoError(t, err)
	return out
}

func toolByName(t *testing.T, r *Registry, name string) tool.BaseTool {
	t.Helper()
	for _, bt := range r.QueryTools() {
		info, err := bt.Info(context.Background())
		require.NoError(t, err)
		if info.Name == name {
			return bt
		}
	}
	t.Fatalf("tool %s not registered", name)
	return nil
}

func TestGetToolInfos(t *testing.T) {
	r := newTestRegistry(t)

	infos, err := GetToolInfos(context.Background(), r.QueryTools())
	require.NoError(t, err)
	require.Len(t, infos, 3)

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.ElementsMatch(t, []string{ToolSearchProduct, ToolGetProductDetails, ToolCalculateQuote}, names)
}

func TestSearchProductTool(t *testing.T) {
	r := newTestRegistry(t)
	bt := toolByName(t, r, ToolSearchProduct)

	out := invoke(t, bt, `{"query": "isodec"}`)

	var res SearchProductOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Total)

	out = invoke(t, bt, `{"query": "techo", "max_results": 1}`)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Total)
}

func TestGetProductDetailsTool(t *testing.T) {
	r := newTestRegistry(t)
	bt := toolByName(t, r, ToolGetProductDetails)

	out := invoke(t, bt, `{"sku": "ISD-EPS-100"}`)

	var res GetProductDetailsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "ISD-EPS-100", res.SKU)
	assert.Equal(t, "100", res.Specifications["espesor_mm"])
	assert.Equal(t, "3.60", res.Specifications["autoportancia_m"])
	assert.True(t, res.InStock)
}

func TestCalculateQuoteTool(t *testing.T) {
	r := newTestRegistry(t)
	bt := toolByName(t, r, ToolCalculateQuote)

	out := invoke(t, bt, `{"panel_sku": "ISD-EPS-100", "length_m": 6, "width_m": 4.5, "include_screws": true}`)

	var res CalculateQuoteOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Quote)
	assert.Empty(t, res.Error)
	assert.Equal(t, 5, res.Quote.BOM.PanelCount)
	assert.Equal(t, 3, res.Quote.BOM.Supports)
	assert.Greater(t, res.Quote.Total, 0.0)
}

func TestCalculateQuoteToolSpanExceeded(t *testing.T) {
	r := newTestRegistry(t)
	bt := toolByName(t, r, ToolCalculateQuote)

	// the span problem comes back as tool output, not as a failed call
	out := invoke(t, bt, `{"panel_sku": "ISD-EPS-100", "length_m": 6, "width_m": 4.5, "free_span_m": 4.2}`)

	var res CalculateQuoteOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Nil(t, res.Quote)
	assert.Contains(t, res.Error, "autoportancia")
	assert.Equal(t, "ISD-EPS-150", res.SuggestedSKU)
}

func TestCalculateQuoteToolValidation(t *testing.T) {
	r := newTestRegistry(t)
	bt := toolByName(t, r, ToolCalculateQuote)

	out := invoke(t, bt, `{"panel_sku": "ISD-EPS-100", "length_m": 0, "width_m": 4.5}`)

	var res CalculateQuoteOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Nil(t, res.Quote)
	assert.Contains(t, res.Error, "length_m")
}
