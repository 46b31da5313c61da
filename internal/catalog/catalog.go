// Package catalog holds the product knowledge base: isopanel lines,
// accessories and the lookups the quotation engine and the agent tools
// run against. The catalog is immutable after construction.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Use identifies what a panel is installed as. It drives fixation rules.
type Use string

const (
	UseRoof Use = "techo"
	UseWall Use = "pared"
)

// AccessoryKind classifies accessories referenced by the BOM rules.
type AccessoryKind string

const (
	KindGotero   AccessoryKind = "gotero"    // drip edge, sold per bar
	KindPerfilU  AccessoryKind = "perfil_u"  // U profile, sold per bar
	KindTornillo AccessoryKind = "tornillo"  // fixation screws, sold per pack
	KindCumbrera AccessoryKind = "cumbrera"  // ridge cap, sold per bar
	KindSellador AccessoryKind = "sellador"  // sealant, sold per unit
)

// Panel is a sandwich-panel SKU as published in the knowledge base.
// Prices are USD per square meter, IVA excluded.
type Panel struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Line         string  `json:"line"`
	Use          Use     `json:"use"`
	ThicknessMM  int     `json:"thickness_mm"`
	UsefulWidthM float64 `json:"useful_width_m"`
	PricePerM2   float64 `json:"price_per_m2"`
	UValue       float64 `json:"u_value"`
	// MaxSpanM is the autoportancia: the longest free span the panel
	// bridges without intermediate supports.
	MaxSpanM    float64 `json:"max_span_m"`
	InStock     bool    `json:"in_stock"`
	Description string  `json:"description"`
}

// Accessory is a non-panel SKU: profiles, screws, sealants.
type Accessory struct {
	SKU   string        `json:"sku"`
	Name  string        `json:"name"`
	Kind  AccessoryKind `json:"kind"`
	Unit  string        `json:"unit"`
	Price float64       `json:"price"`
	// BarLengthM applies to profile kinds sold in fixed-length bars.
	BarLengthM float64 `json:"bar_length_m,omitempty"`
	// PackSize applies to screws sold in packs.
	PackSize int `json:"pack_size,omitempty"`
}

// NotFoundError reports a lookup miss by SKU.
type NotFoundError struct {
	SKU string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sku not found: %s", e.SKU)
}

// Catalog indexes panels and accessories for lookup and search.
type Catalog struct {
	panels      []Panel
	accessories []Accessory
	panelIdx    map[string]int
	accessIdx   map[string]int
}

// New builds a Catalog and validates basic invariants: unique SKUs and
// positive prices, widths and spans.
func New(panels []Panel, accessories []Accessory) (*Catalog, error) {
	c := &Catalog{
		panels:      make([]Panel, len(panels)),
		accessories: make([]Accessory, len(accessories)),
		panelIdx:    make(map[string]int, len(panels)),
		accessIdx:   make(map[string]int, len(accessories)),
	}
	copy(c.panels, panels)
	copy(c.accessories, accessories)

	for i, p := range c.panels {
		if p.SKU == "" {
			return nil, fmt.Errorf("panel %d: empty sku", i)
		}
		if _, dup := c.panelIdx[p.SKU]; dup {
			return nil, fmt.Errorf("duplicate panel sku: %s", p.SKU)
		}
		if p.PricePerM2 <= 0 {
			return nil, fmt.Errorf("panel %s: non-positive price", p.SKU)
		}
		if p.UsefulWidthM <= 0 {
			return nil, fmt.Errorf("panel %s: non-positive useful width", p.SKU)
		}
		if p.MaxSpanM <= 0 {
			return nil, fmt.Errorf("panel %s: non-positive max span", p.SKU)
		}
		c.panelIdx[p.SKU] = i
	}

	for i, a := range c.accessories {
		if a.SKU == "" {
			return nil, fmt.Errorf("accessory %d: empty sku", i)
		}
		if _, dup := c.panelIdx[a.SKU]; dup {
			return nil, fmt.Errorf("accessory sku collides with panel: %s", a.SKU)
		}
		if _, dup := c.accessIdx[a.SKU]; dup {
			return nil, fmt.Errorf("duplicate accessory sku: %s", a.SKU)
		}
		if a.Price <= 0 {
			return nil, fmt.Errorf("accessory %s: non-positive price", a.SKU)
		}
		c.accessIdx[a.SKU] = i
	}

	return c, nil
}

// PanelBySKU returns the panel for sku or a NotFoundError.
func (c *Catalog) PanelBySKU(sku string) (Panel, error) {
	i, ok := c.panelIdx[sku]
	if !ok {
		return Panel{}, &NotFoundError{SKU: sku}
	}
	return c.panels[i], nil
}

// AccessoryBySKU returns the accessory for sku or a NotFoundError.
func (c *Catalog) AccessoryBySKU(sku string) (Accessory, error) {
	i, ok := c.accessIdx[sku]
	if !ok {
		return Accessory{}, &NotFoundError{SKU: sku}
	}
	return c.accessories[i], nil
}

// Panels returns all panels in KB order.
func (c *Catalog) Panels() []Panel {
	out := make([]Panel, len(c.panels))
	copy(out, c.panels)
	return out
}

// Accessories returns all accessories in KB order.
func (c *Catalog) Accessories() []Accessory {
	out := make([]Accessory, len(c.accessories))
	copy(out, c.accessories)
	return out
}

// PanelsByLine returns the panels of one product line sorted by thickness,
// thinnest first. Used to suggest the next thickness when a span check fails.
func (c *Catalog) PanelsByLine(line string) []Panel {
	var out []Panel
	for _, p := range c.panels {
		if strings.EqualFold(p.Line, line) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThicknessMM < out[j].ThicknessMM })
	return out
}

// AccessoryByKind returns the first accessory of the given kind. The KB
// carries a single SKU per kind per price list.
func (c *Catalog) AccessoryByKind(kind AccessoryKind) (Accessory, bool) {
	for _, a := range c.accessories {
		if a.Kind == kind {
			return a, true
		}
	}
	return Accessory{}, false
}

// Search matches query against panel name, line and description with a
// case-insensitive substring match, optionally filtered by line, capped at
// limit results.
func (c *Catalog) Search(query, line string, limit int) []Panel {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	var matched []Panel
	for _, p := range c.panels {
		if line != "" && !strings.EqualFold(p.Line, line) {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Line), query) ||
			strings.Contains(strings.ToLower(p.Description), query) {
			matched = append(matched, p)
		}
		if len(matched) >= limit {
			break
		}
	}
	return matched
}
