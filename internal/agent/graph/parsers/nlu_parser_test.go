package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNLUOutput = `(intent<||>cotizacion_intent<||>0.93<||>0.9<||>{}) ##
(intent<||>consulta_precio<||>0.41<||>0.7<||>{}) ##
(entity<||>producto<||>isodec 100mm<||>0.88<||>{"entity_position": [12, 23]}) ##
(entity<||>largo<||>6<||>0.8<||>{}) ##
(language<||>spa<||>0.99<||>1<||>{}) ##
(sentiment<||>positive<||>0.7<||>{}) ##
<|COMPLETE|>`

func TestParseNLUResponse(t *testing.T) {
	resp, err := ParseNLUResponse(sampleNLUOutput)
	require.NoError(t, err)
	require.NotNil(t, resp)

	require.Len(t, resp.Intents, 2)
	assert.Equal(t, "cotizacion_intent", resp.Intents[0].Name)
	assert.InDelta(t, 0.93, resp.Intents[0].Confidence, 0.001)
	assert.InDelta(t, 0.9, resp.Intents[0].Priority, 0.001)

	require.Len(t, resp.Entities, 2)
	assert.Equal(t, "producto", resp.Entities[0].Type)
	assert.Equal(t, "isodec 100mm", resp.Entities[0].Value)
	assert.Equal(t, []int{12, 23}, resp.Entities[0].Position)
	assert.Empty(t, resp.Entities[1].Position)

	require.Len(t, resp.Languages, 1)
	assert.Equal(t, "spa", resp.Languages[0].Code)
	assert.True(t, resp.Languages[0].IsPrimary)

	assert.Equal(t, "positive", resp.Sentiment.Label)
	assert.InDelta(t, 0.7, resp.Sentiment.Confidence, 0.001)

	assert.Equal(t, "cotizacion_intent", resp.PrimaryIntent)
	assert.Equal(t, "spa", resp.PrimaryLanguage)
	// 0.6*0.93 + 0.4*0.9
	assert.InDelta(t, 0.918, resp.ImportanceScore, 0.001)

	assert.Nil(t, resp.ParsingMetadata["parsing_errors"])
}

func TestParseNLUResponseSkipsMalformedRecords(t *testing.T) {
	content := `(intent<||>saludo<||>0.9<||>0.1<||>{}) ##
not a tuple at all ##
(intent<||>broken<||>nan<||>0.5<||>{}) ##
(unknown<||>x<||>1<||>1) ##
<|COMPLETE|>`

	resp, err := ParseNLUResponse(content)
	require.NoError(t, err)

	require.Len(t, resp.Intents, 1)
	assert.Equal(t, "saludo", resp.Intents[0].Name)

	errs, ok := resp.ParsingMetadata["parsing_errors"].([]string)
	require.True(t, ok)
	assert.Len(t, errs, 3)
}

func TestParseNLUResponseConfidenceRange(t *testing.T) {
	resp, err := ParseNLUResponse(`(intent<||>saludo<||>1.5<||>0.1<||>{}) ## <|COMPLETE|>`)
	require.NoError(t, err)
	assert.Empty(t, resp.Intents)
}

func TestParseNLUResponseIgnoresTextAfterComplete(t *testing.T) {
	content := sampleNLUOutput + ` ## (intent<||>late<||>0.9<||>0.9<||>{})`
	resp, err := ParseNLUResponse(content)
	require.NoError(t, err)
	assert.Len(t, resp.Intents, 2)
}

func TestParseNLUResponseEmpty(t *testing.T) {
	resp, err := ParseNLUResponse("")
	require.NoError(t, err)
	assert.Empty(t, resp.Intents)
	assert.Empty(t, resp.PrimaryIntent)
	assert.Zero(t, resp.ImportanceScore)
}

func TestParseNLUResponseTruncatesOversizedContent(t *testing.T) {
	content := `(intent<||>saludo<||>0.9<||>0.1<||>{}) ## ` + strings.Repeat("x", maxContentLen)
	resp, err := ParseNLUResponse(content)
	require.NoError(t, err)

	assert.Equal(t, true, resp.ParsingMetadata["truncated"])
	require.Len(t, resp.Intents, 1)
}

func TestParseNLUResponseLanguageFallback(t *testing.T) {
	content := `(language<||>spa<||>0.6<||>0<||>{}) ##
(language<||>por<||>0.8<||>0<||>{}) ##
<|COMPLETE|>`

	resp, err := ParseNLUResponse(content)
	require.NoError(t, err)
	assert.Equal(t, "por", resp.PrimaryLanguage, "highest confidence wins without an explicit primary")
}

func TestParseNLUResponseRejectsBadLanguageCode(t *testing.T) {
	resp, err := ParseNLUResponse(`(language<||>es<||>0.9<||>1<||>{}) ## <|COMPLETE|>`)
	require.NoError(t, err)
	assert.Empty(t, resp.Languages)
}

func TestParseRawTuple(t *testing.T) {
	rt, err := parseRawTuple(`(intent<||>a<||>b<||>c)`)
	require.NoError(t, err)
	assert.Equal(t, "intent", rt.Type)
	assert.Len(t, rt.Parts, 4)

	_, err = parseRawTuple("intent<||>a")
	assert.Error(t, err)

	_, err = parseRawTuple("")
	assert.Error(t, err)
}
