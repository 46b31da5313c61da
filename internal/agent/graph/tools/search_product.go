package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/bmc-uruguay/panelin-server/internal/catalog"
)

type SearchProductInput struct {
	Query      string `json:"query"`
	Line       string `json:"line,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type SearchProductOutput struct {
	Products []catalog.Panel `json:"products"`
	Total    int             `json:"total"`
}

func (r *Registry) searchProductTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchProduct,
			Desc: "Busca paneles en el catalogo de BMC. Acepta palabras clave en espanol: isopanel, panel, techo, pared, isodec, isowall, camara, galpon. Devuelve SKU, nombre, espesor, precio por m2, autoportancia y stock. Usar siempre que el cliente mencione un producto.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Palabras clave de busqueda. Ejemplos: isodec, panel de techo, isowall, camara frigorifica.",
					Required: true,
				},
				"line": {
					Type: "string",
					Desc: "Filtro opcional por linea de producto. Lineas disponibles: Isodec EPS, Isowall EPS",
				},
				"max_results": {
					Type: "number",
					Desc: "Cantidad maxima de resultados (default: 10, max: 20)",
				},
			}),
		},
		func(ctx context.Context, in *SearchProductInput) (*SearchProductOutput, error) {
			if in.Query == "" {
				return nil, fmt.Errorf("query is required")
			}
			if in.MaxResults == 0 {
				in.MaxResults = 10
			}

			matched := r.catalog.Search(in.Query, in.Line, in.MaxResults)
			return &SearchProductOutput{
				Products: matched,
				Total:    len(matched),
			}, nil
		},
	)
}
