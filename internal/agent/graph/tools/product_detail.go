package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

type GetProductDetailsInput struct {
	SKU string `json:"sku"`
}

type GetProductDetailsOutput struct {
	SKU            string            `json:"sku"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	PricePerM2     float64           `json:"price_per_m2"`
	Specifications map[string]string `json:"specifications"`
	InStock        bool              `json:"in_stock"`
}

func (r *Registry) productDetailsTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetProductDetails,
			Desc: "Devuelve la ficha tecnica completa de un panel: espesor, ancho util, autoportancia, transmitancia termica, precio y stock. Usar cuando el cliente pide detalles o compara paneles.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"sku": {
					Type:     "string",
					Desc:     "SKU exacto obtenido de search_product (ej: ISD-EPS-100).",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *GetProductDetailsInput) (*GetProductDetailsOutput, error) {
			if in.SKU == "" {
				return nil, fmt.Errorf("sku is required")
			}

			p, err := r.catalog.PanelBySKU(in.SKU)
			if err != nil {
				return nil, err
			}

			return &GetProductDetailsOutput{
				SKU:         p.SKU,
				Name:        p.Name,
				Description: p.Description,
				PricePerM2:  p.PricePerM2,
				Specifications: map[string]string{
					"linea":           p.Line,
					"uso":             string(p.Use),
					"espesor_mm":      fmt.Sprintf("%d", p.ThicknessMM),
					"ancho_util_m":    fmt.Sprintf("%.2f", p.UsefulWidthM),
					"autoportancia_m": fmt.Sprintf("%.2f", p.MaxSpanM),
					"u_valor_w_m2k":   fmt.Sprintf("%.2f", p.UValue),
				},
				InStock: p.InStock,
			}, nil
		},
	)
}
