package kbfile

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const panelsJSON = `{
  "version": "2026.1",
  "updated_at": "2026-08-01",
  "currency": "USD",
  "panels": [
    {"sku": "PNL-T-100", "name": "Isodec EPS 100", "line": "isodec", "use": "techo",
     "thickness_mm": 100, "useful_width_m": 1.0, "price_per_m2": 30,
     "u_value": 0.36, "max_span_m": 3.6, "in_stock": true, "description": "techo"}
  ]
}`

const accessoriesJSON = `{
  "accessories": [
    {"sku": "ACC-TOR", "name": "Tornillos", "kind": "tornillo", "unit": "pack",
     "price": 12, "pack_size": 100}
  ]
}`

func TestLoad(t *testing.T) {
	doc, err := Load(strings.NewReader(panelsJSON))
	require.NoError(t, err)

	assert.Equal(t, "2026.1", doc.Version)
	assert.Equal(t, "USD", doc.Currency)
	require.Len(t, doc.Panels, 1)
	assert.Equal(t, "PNL-T-100", doc.Panels[0].SKU)
	assert.InDelta(t, 3.6, doc.Panels[0].MaxSpanM, 0.001)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader(`{"panels": [{"sku": "X", "autoportancia": 3.6}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "autoportancia")
}

func TestLoadFSMergesLexically(t *testing.T) {
	fsys := fstest.MapFS{
		"02-accessories.json": {Data: []byte(accessoriesJSON)},
		"01-panels.json":      {Data: []byte(panelsJSON)},
		"notes.md":            {Data: []byte("ignored")},
	}

	doc, err := LoadFS(fsys)
	require.NoError(t, err)

	assert.Equal(t, "2026.1", doc.Version, "first file that sets version wins")
	require.Len(t, doc.Panels, 1)
	require.Len(t, doc.Accessories, 1)
	assert.Equal(t, "ACC-TOR", doc.Accessories[0].SKU)
}

func TestLoadFSEmpty(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{"readme.md": {Data: []byte("x")}})
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	doc, err := Load(strings.NewReader(panelsJSON))
	require.NoError(t, err)

	cat, err := doc.Build()
	require.NoError(t, err)

	p, err := cat.PanelBySKU("PNL-T-100")
	require.NoError(t, err)
	assert.Equal(t, "isodec", p.Line)
}

func TestBuildInvalidDocument(t *testing.T) {
	bad, err := Load(strings.NewReader(`{"panels": [{"sku": "X", "price_per_m2": 0}]}`))
	require.NoError(t, err)

	_, err = bad.Build()
	assert.Error(t, err)
}
