package tools

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/bmc-uruguay/panelin-server/internal/quote"
	logx "github.com/bmc-uruguay/panelin-server/pkg/logger"
)

type CalculateQuoteInput struct {
	PanelSKU           string  `json:"panel_sku"`
	LengthM            float64 `json:"length_m"`
	WidthM             float64 `json:"width_m"`
	FreeSpanM          float64 `json:"free_span_m,omitempty"`
	IncludeAccessories bool    `json:"include_accessories,omitempty"`
	IncludeScrews      bool    `json:"include_screws,omitempty"`
	ClimateZone        string  `json:"climate_zone,omitempty"`
}

type CalculateQuoteOutput struct {
	Quote *quote.Quote `json:"quote,omitempty"`
	// Error carries span/validation failures back to the model so it can
	// explain them instead of aborting the conversation.
	Error        string `json:"error,omitempty"`
	SuggestedSKU string `json:"suggested_sku,omitempty"`
}

func (r *Registry) calculateQuoteTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCalculateQuote,
			Desc: "Calcula una cotizacion completa: cantidad de paneles, apoyos segun autoportancia, puntos de fijacion, tornillos, goteros o perfiles U, subtotal, IVA 22% y total en USD. Nunca calcular cantidades ni precios a mano; usar siempre esta herramienta.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"panel_sku": {
					Type:     "string",
					Desc:     "SKU del panel a cotizar (ej: ISD-EPS-100).",
					Required: true,
				},
				"length_m": {
					Type:     "number",
					Desc:     "Largo cubierto en metros (sentido del panel).",
					Required: true,
				},
				"width_m": {
					Type:     "number",
					Desc:     "Ancho cubierto en metros.",
					Required: true,
				},
				"free_span_m": {
					Type: "number",
					Desc: "Luz libre entre apoyos disponible en la obra, en metros. Omitir si se pueden agregar apoyos.",
				},
				"include_accessories": {
					Type: "boolean",
					Desc: "Incluir goteros, perfiles U y sellador.",
				},
				"include_screws": {
					Type: "boolean",
					Desc: "Incluir tornillos de fijacion.",
				},
				"climate_zone": {
					Type: "string",
					Desc: "Zona climatica para estimar ahorro energetico: norte, centro o sur. Omitir para no estimar.",
				},
			}),
		},
		func(ctx context.Context, in *CalculateQuoteInput) (*CalculateQuoteOutput, error) {
			q, err := r.engine.Calculate(quote.Request{
				PanelSKU:           in.PanelSKU,
				LengthM:            in.LengthM,
				WidthM:             in.WidthM,
				FreeSpanM:          in.FreeSpanM,
				IncludeAccessories: in.IncludeAccessories,
				IncludeScrews:      in.IncludeScrews,
				ClimateZone:        in.ClimateZone,
			})
			if err != nil {
				// Span and validation problems are data for the model,
				// not failures of the tool call itself.
				var spanErr *quote.SpanError
				if errors.As(err, &spanErr) {
					logx.Debug().Str("panel_sku", in.PanelSKU).Float64("span", in.FreeSpanM).Msg("span exceeded")
					return &CalculateQuoteOutput{Error: spanErr.Error(), SuggestedSKU: spanErr.SuggestedSKU}, nil
				}
				var valErr *quote.ValidationError
				if errors.As(err, &valErr) {
					return &CalculateQuoteOutput{Error: valErr.Error()}, nil
				}
				return nil, err
			}
			return &CalculateQuoteOutput{Quote: q}, nil
		},
	)
}
