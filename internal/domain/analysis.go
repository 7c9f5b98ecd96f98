package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Recommendation categories. Every recommendations mapping resolves to exactly these keys.
const (
	CategoryEnvironmental = "environmental"
	CategoryHealth        = "health"
	CategorySocial        = "social"
)

// RecommendationCategories lists the categories in output order
var RecommendationCategories = []string{CategoryEnvironmental, CategoryHealth, CategorySocial}

// ProductRequest is a scraped product description submitted for analysis
type ProductRequest struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Brand          string            `json:"brand"`
	Price          Price             `json:"price"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// Price accepts either a JSON string or a JSON number.
// Retailer pages are inconsistent about which one they hand us.
type Price string

// UnmarshalJSON implements json.Unmarshaler
func (p *Price) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*p = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		return fmt.Errorf("price must be a string or number, got %s", trimmed)
	}
	*p = Price(trimmed)
	return nil
}

// ProductAnalysis is the sustainability assessment of a product description
type ProductAnalysis struct {
	Error           string          `json:"error,omitempty"`
	Title           string          `json:"title"`
	Score           float64         `json:"score"` // 0-5, not validated
	Analysis        Analysis        `json:"analysis"`
	Recommendations Recommendations `json:"recommendations"`
	Certifications  []string        `json:"certifications"`
	KeyFeatures     KeyFeatures     `json:"key_features"`
}

// Failed reports whether the analysis is a fallback payload
func (a *ProductAnalysis) Failed() bool {
	return a.Error != ""
}

// Analysis holds the free-text assessment per category
type Analysis struct {
	Environmental string `json:"environmental"`
	Health        string `json:"health"`
	Social        string `json:"social"`
}

// Recommendations holds suggested improvements per category
type Recommendations struct {
	Environmental []string `json:"environmental"`
	Health        []string `json:"health"`
	Social        []string `json:"social"`
}

// UniformRecommendations returns recommendations with the same single entry in every category
func UniformRecommendations(text string) Recommendations {
	return Recommendations{
		Environmental: []string{text},
		Health:        []string{text},
		Social:        []string{text},
	}
}

// Set assigns the list for a category name; unknown names are ignored
func (r *Recommendations) Set(category string, values []string) {
	switch category {
	case CategoryEnvironmental:
		r.Environmental = values
	case CategoryHealth:
		r.Health = values
	case CategorySocial:
		r.Social = values
	}
}

// KeyFeatures lists notable positive and negative traits
type KeyFeatures struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}
