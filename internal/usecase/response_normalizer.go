package usecase

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
)

// NoRecommendation fills any recommendation category the model left out or malformed
const NoRecommendation = "No specific recommendation available."

// NormalizeProductAnalysis turns raw model text into a ProductAnalysis.
//
// Only the recommendations mapping is repaired; every other field is read from
// the fixed schema and defaulted when missing. Fields outside the schema are
// dropped.
func NormalizeProductAnalysis(raw string) (*domain.ProductAnalysis, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object, got %s", domain.ErrUnexpectedShape, jsonKind(doc))
	}

	analysis := doc.Get("analysis")
	features := doc.Get("key_features")

	return &domain.ProductAnalysis{
		Title: doc.Get("title").String(),
		Score: finiteFloat(doc.Get("score")),
		Analysis: domain.Analysis{
			Environmental: objectField(analysis, domain.CategoryEnvironmental).String(),
			Health:        objectField(analysis, domain.CategoryHealth).String(),
			Social:        objectField(analysis, domain.CategorySocial).String(),
		},
		Recommendations: RepairRecommendations(doc.Get("recommendations")),
		Certifications:  stringList(doc.Get("certifications")),
		KeyFeatures: domain.KeyFeatures{
			Positive: stringList(objectField(features, "positive")),
			Negative: stringList(objectField(features, "negative")),
		},
	}, nil
}

// RepairRecommendations forces a recommendations value into the three-category mapping.
//
// A non-mapping value (list, string, number, null, absent) is discarded in favour
// of placeholders. Inside a mapping, a missing or null category gets the
// placeholder, a bare value is wrapped in a one-element list and a list is kept.
func RepairRecommendations(value gjson.Result) domain.Recommendations {
	if !value.IsObject() {
		return domain.UniformRecommendations(NoRecommendation)
	}

	var recommendations domain.Recommendations
	for _, category := range domain.RecommendationCategories {
		entry := value.Get(category)
		switch {
		case !entry.Exists() || entry.Type == gjson.Null:
			recommendations.Set(category, []string{NoRecommendation})
		case entry.IsArray():
			recommendations.Set(category, arrayStrings(entry))
		default:
			recommendations.Set(category, []string{entry.String()})
		}
	}
	return recommendations
}

// parseDocument extracts and validates the JSON payload of a model response
func parseDocument(raw string) (gjson.Result, error) {
	if strings.TrimSpace(raw) == "" {
		return gjson.Result{}, domain.ErrEmptyResponse
	}

	text := ExtractJSON(raw)
	if !gjson.Valid(text) {
		return gjson.Result{}, fmt.Errorf("%w: %q", domain.ErrInvalidAIResponse, preview(text, 80))
	}
	return gjson.Parse(text), nil
}

// objectField reads a direct child of an object, and nothing from any other JSON type
func objectField(obj gjson.Result, key string) gjson.Result {
	if !obj.IsObject() {
		return gjson.Result{}
	}
	return obj.Get(key)
}

// stringList reads a list of strings; a lone value becomes a one-element list
func stringList(value gjson.Result) []string {
	if !value.Exists() || value.Type == gjson.Null {
		return []string{}
	}
	if value.IsArray() {
		return arrayStrings(value)
	}
	return []string{value.String()}
}

func arrayStrings(value gjson.Result) []string {
	items := value.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}

// finiteFloat reads a number; values that overflow float64 or are not numbers read as 0
func finiteFloat(value gjson.Result) float64 {
	f := value.Float()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

func jsonKind(value gjson.Result) string {
	switch {
	case value.IsArray():
		return "array"
	case value.IsObject():
		return "object"
	case value.Type == gjson.String:
		return "string"
	case value.Type == gjson.Number:
		return "number"
	case value.Type == gjson.True, value.Type == gjson.False:
		return "boolean"
	default:
		return "null"
	}
}

// preview truncates s to at most n bytes without splitting a rune
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
