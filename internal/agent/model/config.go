package model

// ================ Config ================
type ConversationConfig struct {
	TTL string `envconfig:"CONVERSATION_TTL" default:"30m"`
	NLU struct {
		MaxTurns int `envconfig:"CONVERSATION_NLU_MAX_TURNS" default:"5"`
	}
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
}

type NLUModelConfig struct {
	Model            string  `envconfig:"NLU_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens        int     `envconfig:"NLU_MAX_TOKENS" default:"2000"`
	Temperature      float32 `envconfig:"NLU_TEMPERATURE" default:"0.1"`
	DefaultIntent    string  `envconfig:"NLU_DEFAULT_INTENT" default:"saludo:0.1, cotizacion_intent:0.9, consulta_precio:0.7, consulta_tecnica:0.6, reclamo_intent:0.6"`
	AdditionalIntent string  `envconfig:"NLU_ADDITIONAL_INTENT" default:"consulta_stock:0.5, comparar_paneles:0.5, ahorro_energetico:0.5, envio_interior:0.4"`
	DefaultEntity    string  `envconfig:"NLU_DEFAULT_ENTITY" default:"producto, espesor, largo, ancho, luz_libre"`
	AdditionalEntity string  `envconfig:"NLU_ADDITIONAL_ENTITY" default:"uso, zona, cantidad, presupuesto, departamento"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
}

type ResponsePromptConfig struct {
	BusinessType string `envconfig:"PROMPT_BUSINESS_TYPE" default:"distribuidora de paneles aislantes"`
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"BMC"`
	AgentName    string `envconfig:"PROMPT_AGENT_NAME" default:"Panelin"`
}
