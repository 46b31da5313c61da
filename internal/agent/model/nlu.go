package model

import "time"

// Intent is one detected user intent with model confidence and the
// business priority configured for it.
type Intent struct {
	Name       string         `json:"name"`
	Confidence float64        `json:"confidence"`
	Priority   float64        `json:"priority"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Entity is one extracted slot value (producto, espesor, largo...).
type Entity struct {
	Type       string         `json:"type"`
	Value      string         `json:"value"`
	Confidence float64        `json:"confidence"`
	Position   []int          `json:"position,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Language is a detected language with an ISO 639-3 code.
type Language struct {
	Code       string         `json:"code"`
	Confidence float64        `json:"confidence"`
	IsPrimary  bool           `json:"is_primary"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Sentiment is the overall message sentiment.
type Sentiment struct {
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NLUResponse is the structured analysis parsed from the NLU model output.
type NLUResponse struct {
	Intents         []Intent       `json:"intents"`
	Entities        []Entity       `json:"entities"`
	Languages       []Language     `json:"languages"`
	Sentiment       Sentiment      `json:"sentiment"`
	PrimaryIntent   string         `json:"primary_intent"`
	PrimaryLanguage string         `json:"primary_language"`
	ImportanceScore float64        `json:"importance_score"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ParsingMetadata map[string]any `json:"parsing_metadata,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}
