package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPanels() []Panel {
	return []Panel{
		{SKU: "PNL-T-150", Name: "Isodec EPS 150", Line: "isodec", Use: UseRoof,
			ThicknessMM: 150, UsefulWidthM: 1.0, PricePerM2: 38, MaxSpanM: 4.5,
			Description: "panel de techo con nucleo EPS"},
		{SKU: "PNL-T-100", Name: "Isodec EPS 100", Line: "isodec", Use: UseRoof,
			ThicknessMM: 100, UsefulWidthM: 1.0, PricePerM2: 30, MaxSpanM: 3.6,
			Description: "panel de techo con nucleo EPS"},
		{SKU: "PNL-P-100", Name: "Isowall EPS 100", Line: "isowall", Use: UseWall,
			ThicknessMM: 100, UsefulWidthM: 1.14, PricePerM2: 28, MaxSpanM: 4.2,
			Description: "panel de pared"},
	}
}

func testAccessories() []Accessory {
	return []Accessory{
		{SKU: "ACC-GOT", Name: "Gotero", Kind: KindGotero, Unit: "barra", Price: 10, BarLengthM: 3},
		{SKU: "ACC-TOR", Name: "Tornillos", Kind: KindTornillo, Unit: "pack", Price: 12, PackSize: 100},
	}
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name        string
		panels      []Panel
		accessories []Accessory
	}{
		{"empty panel sku", []Panel{{PricePerM2: 1, UsefulWidthM: 1, MaxSpanM: 1}}, nil},
		{"duplicate panel sku", append(testPanels(), testPanels()[0]), nil},
		{"non-positive price", []Panel{{SKU: "X", UsefulWidthM: 1, MaxSpanM: 1}}, nil},
		{"non-positive width", []Panel{{SKU: "X", PricePerM2: 1, MaxSpanM: 1}}, nil},
		{"non-positive span", []Panel{{SKU: "X", PricePerM2: 1, UsefulWidthM: 1}}, nil},
		{"accessory collides with panel", testPanels(), []Accessory{{SKU: "PNL-T-100", Price: 1}}},
		{"duplicate accessory sku", testPanels(), append(testAccessories(), testAccessories()[0])},
		{"accessory non-positive price", testPanels(), []Accessory{{SKU: "ACC-X"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.panels, tc.accessories)
			assert.Error(t, err)
		})
	}
}

func TestLookups(t *testing.T) {
	c, err := New(testPanels(), testAccessories())
	require.NoError(t, err)

	p, err := c.PanelBySKU("PNL-T-100")
	require.NoError(t, err)
	assert.Equal(t, 100, p.ThicknessMM)

	_, err = c.PanelBySKU("MISSING")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "MISSING", nf.SKU)

	a, err := c.AccessoryBySKU("ACC-GOT")
	require.NoError(t, err)
	assert.Equal(t, KindGotero, a.Kind)

	_, err = c.AccessoryBySKU("PNL-T-100")
	assert.ErrorAs(t, err, &nf)
}

func TestPanelsByLineSortedByThickness(t *testing.T) {
	c, err := New(testPanels(), nil)
	require.NoError(t, err)

	line := c.PanelsByLine("ISODEC")
	require.Len(t, line, 2)
	assert.Equal(t, "PNL-T-100", line[0].SKU)
	assert.Equal(t, "PNL-T-150", line[1].SKU)

	assert.Empty(t, c.PanelsByLine("no-such-line"))
}

func TestAccessoryByKind(t *testing.T) {
	c, err := New(nil, testAccessories())
	require.NoError(t, err)

	a, ok := c.AccessoryByKind(KindTornillo)
	require.True(t, ok)
	assert.Equal(t, "ACC-TOR", a.SKU)

	_, ok = c.AccessoryByKind(KindSellador)
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	c, err := New(testPanels(), nil)
	require.NoError(t, err)

	assert.Len(t, c.Search("isodec", "", 10), 2)
	assert.Len(t, c.Search("techo", "", 10), 2)
	assert.Len(t, c.Search("TECHO", "isowall", 10), 0)
	assert.Len(t, c.Search("panel", "isowall", 10), 1)
	assert.Len(t, c.Search("panel", "", 1), 1, "limit caps results")
	assert.Empty(t, c.Search("   ", "", 10))
	assert.Empty(t, c.Search("zinc", "", 10))
}

func TestAccessorsCopy(t *testing.T) {
	c, err := New(testPanels(), testAccessories())
	require.NoError(t, err)

	got := c.Panels()
	got[0].PricePerM2 = 9999

	again, err := c.PanelBySKU(got[0].SKU)
	require.NoError(t, err)
	assert.NotEqual(t, 9999.0, again.PricePerM2, "catalog must stay immutable")
}
