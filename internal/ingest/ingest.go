// Package ingest pulls the product master data out of MongoDB and writes
// it as knowledge-base JSON documents. The operations team maintains
// prices in Mongo; the assistant and the quote engine read the exported
// files.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bmc-uruguay/panelin-server/internal/catalog"
	"github.com/bmc-uruguay/panelin-server/internal/catalog/kbfile"
	errx "github.com/bmc-uruguay/panelin-server/internal/core/error"
	logx "github.com/bmc-uruguay/panelin-server/pkg/logger"
)

const (
	panelsCollection      = "panels"
	accessoriesCollection = "accessories"
	queryTimeout          = 15 * time.Second
)

// panelRecord mirrors a panel document in Mongo. The field set matches
// catalog.Panel but with bson tags and without install-time derived data.
type panelRecord struct {
	SKU          string  `bson:"sku"`
	Name         string  `bson:"name"`
	Line         string  `bson:"line"`
	Use          string  `bson:"use"`
	ThicknessMM  int     `bson:"thickness_mm"`
	UsefulWidthM float64 `bson:"useful_width_m"`
	PricePerM2   float64 `bson:"price_per_m2"`
	UValue       float64 `bson:"u_value"`
	MaxSpanM     float64 `bson:"max_span_m"`
	InStock      bool    `bson:"in_stock"`
	Description  string  `bson:"description"`
}

type accessoryRecord struct {
	SKU        string  `bson:"sku"`
	Name       string  `bson:"name"`
	Kind       string  `bson:"kind"`
	Unit       string  `bson:"unit"`
	Price      float64 `bson:"price"`
	BarLengthM float64 `bson:"bar_length_m,omitempty"`
	PackSize   int     `bson:"pack_size,omitempty"`
}

// Extractor reads master data from one Mongo database.
type Extractor struct {
	db *mongo.Database
}

func NewExtractor(client *mongo.Client, database string) *Extractor {
	return &Extractor{db: client.Database(database)}
}

// Extract reads all active panels and accessories into a KB document.
func (e *Extractor) Extract(ctx context.Context) (*kbfile.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	panels, err := e.fetchPanels(ctx)
	if err != nil {
		return nil, err
	}
	accessories, err := e.fetchAccessories(ctx)
	if err != nil {
		return nil, err
	}

	doc := &kbfile.Document{
		Version:     time.Now().UTC().Format("2006.01.02"),
		UpdatedAt:   time.Now().UTC().Format("2006-01-02"),
		Currency:    "USD",
		Panels:      panels,
		Accessories: accessories,
	}

	logx.Info().
		Int("panels", len(panels)).
		Int("accessories", len(accessories)).
		Msg("kb extraction complete")
	return doc, nil
}

func (e *Extractor) fetchPanels(ctx context.Context) ([]catalog.Panel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sku", Value: 1}})
	cur, err := e.db.Collection(panelsCollection).Find(ctx, bson.M{"active": bson.M{"$ne": false}}, opts)
	if err != nil {
		return nil, errx.WrapMongo(fmt.Errorf("find panels: %w", err))
	}
	defer cur.Close(ctx)

	var records []panelRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, errx.WrapMongo(fmt.Errorf("decode panels: %w", err))
	}

	panels := make([]catalog.Panel, 0, len(records))
	for _, r := range records {
		panels = append(panels, catalog.Panel{
			SKU:          r.SKU,
			Name:         r.Name,
			Line:         r.Line,
			Use:          catalog.Use(r.Use),
			ThicknessMM:  r.ThicknessMM,
			UsefulWidthM: r.UsefulWidthM,
			PricePerM2:   r.PricePerM2,
			UValue:       r.UValue,
			MaxSpanM:     r.MaxSpanM,
			InStock:      r.InStock,
			Description:  r.Description,
		})
	}
	return panels, nil
}

func (e *Extractor) fetchAccessories(ctx context.Context) ([]catalog.Accessory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sku", Value: 1}})
	cur, err := e.db.Collection(accessoriesCollection).Find(ctx, bson.M{"active": bson.M{"$ne": false}}, opts)
	if err != nil {
		return nil, errx.WrapMongo(fmt.Errorf("find accessories: %w", err))
	}
	defer cur.Close(ctx)

	var records []accessoryRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, errx.WrapMongo(fmt.Errorf("decode accessories: %w", err))
	}

	accessories := make([]catalog.Accessory, 0, len(records))
	for _, r := range records {
		accessories = append(accessories, catalog.Accessory{
			SKU:        r.SKU,
			Name:       r.Name,
			Kind:       catalog.AccessoryKind(r.Kind),
			Unit:       r.Unit,
			Price:      r.Price,
			BarLengthM: r.BarLengthM,
			PackSize:   r.PackSize,
		})
	}
	return accessories, nil
}

// WriteDocument writes the document as pretty-printed JSON, creating the
// target directory when needed.
func WriteDocument(doc *kbfile.Document, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode kb document: %w", err)
	}
	b = append(b, '\n')

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}

	logx.Info().Str("path", path).Msg("kb document written")
	return nil
}
