// Package tools defines the business tools the response model can call.
// All catalog lookups and quote arithmetic run here; the model only
// narrates the structured results.
package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/bmc-uruguay/panelin-server/internal/catalog"
	"github.com/bmc-uruguay/panelin-server/internal/quote"
)

const (
	ToolSearchProduct     = "search_product"
	ToolGetProductDetails = "get_product_details"
	ToolCalculateQuote    = "calculate_quote"
)

// Registry builds the tool set over a catalog snapshot and quote engine.
type Registry struct {
	catalog *catalog.Catalog
	engine  *quote.Engine
}

func NewRegistry(c *catalog.Catalog, e *quote.Engine) *Registry {
	return &Registry{catalog: c, engine: e}
}

// QueryTools returns every tool available to the response model.
func (r *Registry) QueryTools() []tool.BaseTool {
	return []tool.BaseTool{
		r.searchProductTool(),
		r.productDetailsTool(),
		r.calculateQuoteTool(),
	}
}

// GetToolInfos collects ToolInfo from each tool for model binding.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
