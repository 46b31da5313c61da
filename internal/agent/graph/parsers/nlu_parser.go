package parsers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bmc-uruguay/panelin-server/internal/agent/model"
	errx "github.com/bmc-uruguay/panelin-server/internal/core/error"
	logx "github.com/bmc-uruguay/panelin-server/pkg/logger"
)

const (
	recDelim = "##"
	tupDelim = "<||>"
	endDelim = "<|COMPLETE|>"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024
	maxRecords    = 500
	maxTupleLen   = 8 * 1024
	maxMetaLen    = 4 * 1024
	maxErrSnippet = 200
)

type rawTuple struct {
	Type  string
	Parts []string
}

func parseRawTuple(s string) (*rawTuple, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	if len(s) > maxTupleLen {
		return nil, fmt.Errorf("tuple too large")
	}

	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid tuple parens")
	}
	inner := s[1 : len(s)-1]
	// limit splitting so metadata JSON can itself contain delimiters
	parts := strings.SplitN(inner, tupDelim, 5)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tuple parts")
	}
	return &rawTuple{Type: strings.TrimSpace(parts[0]), Parts: parts}, nil
}

func mustValidUTF8(s string, name string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s invalid utf8", name)
	}
	return nil
}

func parseFloatInRange(s, name string, min, max float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s invalid number", name)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s out of range", name)
	}
	return v, nil
}

func parseMeta(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{}, nil
	}
	if len(s) > maxMetaLen {
		return nil, fmt.Errorf("metadata too large")
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("metadata not json object")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseNLUResponse turns the delimited tuple stream emitted by the NLU
// model into a structured NLUResponse. Malformed records are skipped and
// recorded in ParsingMetadata instead of failing the whole analysis.
func ParseNLUResponse(content string) (resp *model.NLUResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "nlu_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("nlu parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			resp = nil
		}
	}()

	truncated := false
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "nlu_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
		truncated = true
	}
	if idx := strings.Index(content, endDelim); idx >= 0 {
		content = content[:idx]
	}

	resp = &model.NLUResponse{
		Intents:         []model.Intent{},
		Entities:        []model.Entity{},
		Languages:       []model.Language{},
		Sentiment:       model.Sentiment{},
		Metadata:        map[string]any{"parser": "lite"},
		ParsingMetadata: map[string]any{},
		Timestamp:       time.Now().UTC(),
	}

	addErr := func(msg string) {
		v, _ := resp.ParsingMetadata["parsing_errors"].([]string)
		v = append(v, msg)
		resp.ParsingMetadata["parsing_errors"] = v
	}

	if truncated {
		resp.ParsingMetadata["truncated"] = true
	}

	records := strings.Split(content, recDelim)
	processed := 0
	for _, rec := range records {
		if processed >= maxRecords {
			resp.ParsingMetadata["records_capped"] = true
			logx.Warn().
				Str("component", "nlu_parser").
				Int("max_records", maxRecords).
				Msg("record processing capped")
			break
		}
		rec = strings.TrimSpace(rec)
		if rec == "" || rec == endDelim {
			continue
		}
		processed++

		rt, rerr := parseRawTuple(rec)
		if rerr != nil {
			addErr(fmt.Sprintf("bad_record: %s", safeSnippet(rec)))
			continue
		}

		switch rt.Type {
		case "intent":
			parseIntent(rt, resp, addErr)
		case "entity":
			parseEntity(rt, resp, addErr)
		case "language":
			parseLanguage(rt, resp, addErr)
		case "sentiment":
			parseSentiment(rt, resp, addErr)
		default:
			addErr("unknown tuple type")
		}
	}

	deriveFields(resp)
	return resp, nil
}

func parseIntent(rt *rawTuple, resp *model.NLUResponse, addErr func(string)) {
	if len(rt.Parts) < 4 {
		addErr("intent: insufficient parts")
		return
	}
	name := strings.TrimSpace(rt.Parts[1])
	if mustValidUTF8(name, "intent.name") != nil || name == "" {
		addErr("intent: invalid name")
		return
	}
	conf, err := parseFloatInRange(rt.Parts[2], "intent.confidence", 0, 1)
	if err != nil {
		addErr("intent: invalid confidence")
		return
	}
	prio, err := parseFloatInRange(rt.Parts[3], "intent.priority", 0, 1)
	if err != nil {
		addErr("intent: invalid priority")
		return
	}
	meta := map[string]any{}
	if len(rt.Parts) >= 5 {
		if m, err := parseMeta(rt.Parts[4]); err == nil {
			meta = m
		} else {
			addErr("intent: invalid metadata json")
		}
	}
	resp.Intents = append(resp.Intents, model.Intent{Name: name, Confidence: conf, Priority: prio, Metadata: meta})
}

func parseEntity(rt *rawTuple, resp *model.NLUResponse, addErr func(string)) {
	if len(rt.Parts) < 4 {
		addErr("entity: insufficient parts")
		return
	}
	etype := strings.TrimSpace(rt.Parts[1])
	val := strings.TrimSpace(rt.Parts[2])
	if mustValidUTF8(etype, "entity.type") != nil || etype == "" {
		addErr("entity: invalid type")
		return
	}
	if mustValidUTF8(val, "entity.value") != nil || val == "" {
		addErr("entity: invalid value")
		return
	}
	conf, err := parseFloatInRange(rt.Parts[3], "entity.confidence", 0, 1)
	if err != nil {
		addErr("entity: invalid confidence")
		return
	}
	meta := map[string]any{}
	if len(rt.Parts) >= 5 {
		if m, err := parseMeta(rt.Parts[4]); err == nil {
			meta = m
		} else {
			addErr("entity: invalid metadata json")
		}
	}
	e := model.Entity{Type: etype, Value: val, Confidence: conf, Metadata: meta}
	if pos := normalizeEntityPosition(meta); len(pos) == 2 {
		e.Position = pos
	}
	resp.Entities = append(resp.Entities, e)
}

func parseLanguage(rt *rawTuple, resp *model.NLUResponse, addErr func(string)) {
	if len(rt.Parts) < 4 {
		addErr("language: insufficient parts")
		return
	}
	code := strings.ToLower(strings.TrimSpace(rt.Parts[1]))
	if !isISO639_3(code) {
		addErr("language: invalid code")
		return
	}
	conf, err := parseFloatInRange(rt.Parts[2], "lang.confidence", 0, 1)
	if err != nil {
		addErr("language: invalid confidence")
		return
	}
	isPrimary := strings.TrimSpace(rt.Parts[3]) == "1"
	meta := map[string]any{}
	if len(rt.Parts) >= 5 {
		if m, err := parseMeta(rt.Parts[4]); err == nil {
			meta = m
		} else {
			addErr("language: invalid metadata json")
		}
	}
	resp.Languages = append(resp.Languages, model.Language{Code: code, Confidence: conf, IsPrimary: isPrimary, Metadata: meta})
}

func parseSentiment(rt *rawTuple, resp *model.NLUResponse, addErr func(string)) {
	if len(rt.Parts) < 3 {
		addErr("sentiment: insufficient parts")
		return
	}
	label := strings.TrimSpace(rt.Parts[1])
	if mustValidUTF8(label, "sent.label") != nil || label == "" {
		addErr("sentiment: invalid label")
		return
	}
	conf, err := parseFloatInRange(rt.Parts[2], "sent.confidence", 0, 1)
	if err != nil {
		addErr("sentiment: invalid confidence")
		return
	}
	meta := map[string]any{}
	if len(rt.Parts) >= 4 {
		if m, err := parseMeta(rt.Parts[3]); err == nil {
			meta = m
		} else {
			addErr("sentiment: invalid metadata json")
		}
	}
	resp.Sentiment = model.Sentiment{Label: label, Confidence: conf, Metadata: meta}
}

// deriveFields fills PrimaryIntent, PrimaryLanguage and ImportanceScore.
func deriveFields(resp *model.NLUResponse) {
	bestConf := -1.0
	for _, it := range resp.Intents {
		if it.Confidence > bestConf {
			bestConf = it.Confidence
			resp.PrimaryIntent = it.Name
		}
	}

	for _, l := range resp.Languages {
		if l.IsPrimary {
			resp.PrimaryLanguage = l.Code
			break
		}
	}
	if resp.PrimaryLanguage == "" {
		best := -1.0
		for _, l := range resp.Languages {
			if l.Confidence > best {
				best = l.Confidence
				resp.PrimaryLanguage = l.Code
			}
		}
	}

	// importance = 0.6*confidence + 0.4*priority of the primary intent
	for _, it := range resp.Intents {
		if it.Name == resp.PrimaryIntent {
			resp.ImportanceScore = it.Confidence*0.6 + it.Priority*0.4
			break
		}
	}
}

// --- helpers ---

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}

func isISO639_3(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		c := code[i]
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

func normalizeEntityPosition(meta map[string]any) []int {
	if meta == nil {
		return nil
	}
	raw, ok := meta["entity_position"]
	if !ok {
		return nil
	}
	arr, ok := raw.([]any)
	if !ok || len(arr) != 2 {
		return nil
	}
	a, aok := arr[0].(float64)
	b, bok := arr[1].(float64)
	if !aok || !bok {
		return nil
	}
	start := int(a)
	end := int(b)
	if start < 0 || end < 0 || start > end {
		return nil
	}
	return []int{start, end}
}
