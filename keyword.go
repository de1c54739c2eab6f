package trendtap

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// KeywordRecord represents a single keyword row produced by a research tool
type KeywordRecord struct {
	Keyword      string  `json:"keyword"`
	SearchVolume int     `json:"search_volume"`
	Difficulty   float64 `json:"difficulty"`
	CPC          float64 `json:"cpc"`
}

// Intent is the search intent derived from lexical cues in a keyword
type Intent string

const (
	IntentInformational Intent = "informational"
	IntentNavigational  Intent = "navigational"
	IntentTransactional Intent = "transactional"
	IntentCommercial    Intent = "commercial"
)

// PreparedKeyword is a keyword record annotated for clustering
type PreparedKeyword struct {
	Original KeywordRecord
	Text     string
	Intent   Intent
	Length   int
	Features map[string]bool
}

// Checked in order; the first category with a matching cue wins.
var intentCues = []struct {
	intent Intent
	cues   []string
}{
	{IntentInformational, []string{"what", "how", "why", "when", "where", "guide", "tutorial", "learn"}},
	{IntentNavigational, []string{"login", "sign in", "website", "official"}},
	{IntentTransactional, []string{"buy", "purchase", "order", "price", "cost", "deal", "sale"}},
	{IntentCommercial, []string{"best", "review", "compare", "vs", "alternative"}},
}

var (
	questionWords = []string{"what", "how", "why", "when", "where", "who", "which"}
	actionWords   = []string{"buy", "get", "download", "find", "learn", "make", "create"}
	brandWords    = []string{"brand", "company", "official", "store"}
	locationWords = []string{"near", "local", "city", "area", "location"}
)

// Prepare drops records with an empty keyword and annotates the rest.
// Input order is preserved.
func Prepare(records []KeywordRecord) []PreparedKeyword {
	prepared := make([]PreparedKeyword, 0, len(records))
	for _, record := range records {
		text := strings.ToLower(strings.TrimSpace(record.Keyword))
		if text == "" {
			continue
		}
		prepared = append(prepared, PreparedKeyword{
			Original: record,
			Text:     text,
			Intent:   detectIntent(text),
			Length:   len(strings.Fields(text)),
			Features: extractFeatures(text),
		})
	}
	return prepared
}

func detectIntent(text string) Intent {
	for _, group := range intentCues {
		if containsAny(text, group.cues) {
			return group.intent
		}
	}
	return IntentInformational
}

func extractFeatures(text string) map[string]bool {
	features := map[string]bool{
		fmt.Sprintf("words_%d", len(strings.Fields(text))): true,
	}

	switch n := len(text); {
	case n <= 20:
		features["short"] = true
	case n <= 50:
		features["medium"] = true
	default:
		features["long"] = true
	}

	if containsAny(text, questionWords) {
		features["question"] = true
	}
	if containsAny(text, actionWords) {
		features["action"] = true
	}
	if containsAny(text, brandWords) {
		features["brand"] = true
	}
	if containsAny(text, locationWords) {
		features["location"] = true
	}
	return features
}

func containsAny(text string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}

// KeywordRecordFromMap converts a loosely typed payload (as stored by the
// research tools) into a KeywordRecord. Missing or malformed numbers become 0.
func KeywordRecordFromMap(raw map[string]any) KeywordRecord {
	record := KeywordRecord{
		Keyword: stringValue(firstPresent(raw, "keyword", "term", "query")),
	}
	record.SearchVolume = int(math.Round(floatValue(firstPresent(raw, "search_volume", "volume", "searches"))))
	if record.SearchVolume < 0 {
		record.SearchVolume = 0
	}
	record.Difficulty = floatValue(firstPresent(raw, "difficulty", "keyword_difficulty", "kd"))
	record.CPC = floatValue(firstPresent(raw, "cpc"))
	if record.CPC < 0 {
		record.CPC = 0
	}
	return record
}

// KeywordRecordsFromMaps converts a batch with KeywordRecordFromMap
func KeywordRecordsFromMaps(raws []map[string]any) []KeywordRecord {
	records := make([]KeywordRecord, 0, len(raws))
	for _, raw := range raws {
		records = append(records, KeywordRecordFromMap(raw))
	}
	return records
}

func firstPresent(raw map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func floatValue(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}
