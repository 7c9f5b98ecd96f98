package usecase

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
)

// Defaults for product fields the model did not fill in
const (
	UnknownProduct = "Unknown Product"
	UnknownBrand   = "Unknown Brand"
	NotAvailable   = "Not available"
)

// assessmentKeys maps each field to the keys it may appear under.
// Older prompts asked for Title Case keys with spaces, so both are accepted.
var assessmentKeys = struct {
	productName, brand, ingredients, packaging, carbon, recycling, alternatives, rating, health, tips []string
}{
	productName:  []string{"productName", "Product Name", "name"},
	brand:        []string{"brand", "Brand"},
	ingredients:  []string{"ingredientsImpact", "Ingredients Impact"},
	packaging:    []string{"packagingMaterial", "Packaging Material"},
	carbon:       []string{"carbonFootprint", "Carbon Footprint"},
	recycling:    []string{"recyclingFeasibility", "Recycling Feasibility"},
	alternatives: []string{"alternativeOptions", "Alternative Options"},
	rating:       []string{"sustainabilityRating", "Sustainability Rating"},
	health:       []string{"healthImpact", "Health Impact"},
	tips:         []string{"recyclingTips", "Recycling Tips"},
}

var (
	productsKeys        = []string{"products", "Products"}
	overallScoreKeys    = []string{"overallSustainabilityScore", "Overall Sustainability Score"}
	recommendationsKeys = []string{"recommendations", "Recommendations"}
)

// NormalizeImageAnalysis turns raw model text into an ImageAnalysis.
// A top-level array, or a bill-shaped object, contributes its first product.
func NormalizeImageAnalysis(raw string) (*domain.ImageAnalysis, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}

	product, container, err := singleProduct(doc)
	if err != nil {
		return nil, err
	}

	return &domain.ImageAnalysis{
		ProductAssessment: readAssessment(product),
		Recommendations:   RepairRecommendations(lookup(container, recommendationsKeys...)),
	}, nil
}

// NormalizeBillAnalysis turns raw model text into a BillAnalysis
func NormalizeBillAnalysis(raw string) (*domain.BillAnalysis, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}

	result := &domain.BillAnalysis{Products: []domain.ProductAssessment{}}

	switch {
	case doc.IsArray():
		result.Products = readAssessments(doc)
		result.Recommendations = RepairRecommendations(gjson.Result{})
	case doc.IsObject():
		if products := lookup(doc, productsKeys...); products.IsArray() {
			result.Products = readAssessments(products)
		} else if looksLikeProduct(doc) {
			result.Products = append(result.Products, readAssessment(doc))
		}
		result.OverallSustainabilityScore = finiteFloat(lookup(doc, overallScoreKeys...))
		result.Recommendations = RepairRecommendations(lookup(doc, recommendationsKeys...))
	default:
		return nil, fmt.Errorf("%w: expected a JSON object or array, got %s", domain.ErrUnexpectedShape, jsonKind(doc))
	}

	return result, nil
}

// singleProduct picks the product object and the object holding its recommendations
func singleProduct(doc gjson.Result) (product, container gjson.Result, err error) {
	switch {
	case doc.IsArray():
		for _, item := range doc.Array() {
			if item.IsObject() {
				return item, item, nil
			}
		}
		return gjson.Result{}, gjson.Result{}, fmt.Errorf("%w: array holds no product object", domain.ErrUnexpectedShape)
	case doc.IsObject():
		if products := lookup(doc, productsKeys...); products.IsArray() && !looksLikeProduct(doc) {
			for _, item := range products.Array() {
				if item.IsObject() {
					return item, doc, nil
				}
			}
		}
		return doc, doc, nil
	default:
		return gjson.Result{}, gjson.Result{}, fmt.Errorf("%w: expected a JSON object, got %s", domain.ErrUnexpectedShape, jsonKind(doc))
	}
}

func readAssessments(list gjson.Result) []domain.ProductAssessment {
	out := []domain.ProductAssessment{}
	for _, item := range list.Array() {
		if item.IsObject() {
			out = append(out, readAssessment(item))
		}
	}
	return out
}

func readAssessment(obj gjson.Result) domain.ProductAssessment {
	keys := assessmentKeys
	return domain.ProductAssessment{
		ProductName:          stringField(obj, UnknownProduct, keys.productName...),
		Brand:                stringField(obj, UnknownBrand, keys.brand...),
		IngredientsImpact:    stringField(obj, NotAvailable, keys.ingredients...),
		PackagingMaterial:    stringField(obj, NotAvailable, keys.packaging...),
		CarbonFootprint:      stringField(obj, "", keys.carbon...),
		RecyclingFeasibility: stringField(obj, NotAvailable, keys.recycling...),
		AlternativeOptions:   stringField(obj, "", keys.alternatives...),
		SustainabilityRating: finiteFloat(lookup(obj, keys.rating...)),
		HealthImpact:         stringField(obj, "", keys.health...),
		RecyclingTips:        stringField(obj, "", keys.tips...),
	}
}

func looksLikeProduct(obj gjson.Result) bool {
	return lookup(obj, assessmentKeys.productName...).Exists()
}

// lookup returns the first non-null value found under any of the keys.
// Keys are matched literally, so spaces in legacy names are safe.
func lookup(obj gjson.Result, keys ...string) gjson.Result {
	if !obj.IsObject() {
		return gjson.Result{}
	}
	fields := obj.Map()
	for _, key := range keys {
		if value, ok := fields[key]; ok && value.Type != gjson.Null {
			return value
		}
	}
	return gjson.Result{}
}

// stringField reads a string field, falling back to def when it is missing or blank
func stringField(obj gjson.Result, def string, keys ...string) string {
	value := lookup(obj, keys...)
	if !value.Exists() {
		return def
	}
	s := value.String()
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
