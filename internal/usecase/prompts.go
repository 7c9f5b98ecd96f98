package usecase

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
)

const recommendationsFormat = `The recommendations MUST be a nested object with three categories,
each an array of strings, even if it holds a single recommendation:
"recommendations": {
    "environmental": ["Replace plastic packaging with biodegradable materials"],
    "health": ["Remove artificial preservatives"],
    "social": ["Implement fair trade certification"]
}
Do NOT return recommendations as a flat array or a string.`

const productPromptText = `Analyze the product and provide a detailed sustainability assessment.

IMPORTANT: Return ONLY a valid JSON object. No extra text, no explanations.

JSON format:
{
    "title": "string",
    "score": float,
    "analysis": {
        "environmental": "string",
        "health": "string",
        "social": "string"
    },
    "recommendations": {
        "environmental": ["string"],
        "health": ["string"],
        "social": ["string"]
    },
    "certifications": ["string"],
    "key_features": {
        "positive": ["string", "string"],
        "negative": ["string", "string"]
    }
}

Product Details:
- Title: {{ .Title | trim }}
- Brand: {{ .Brand | trim }}
- Description: {{ .Description | trim }}
- Price: {{ .Price | trim }}
{{- if .Specifications }}

Product Specifications:
{{- range .Specifications }}
- {{ .Key | trim }}: {{ .Value | trim }}
{{- end }}
{{- end }}

Note: Score should be out of 5, not 10.

{{ .RecommendationsFormat }}

ONLY return JSON, no extra text!
`

const imagePromptText = `Using the nutritional facts and packaging information visible in this image,
identify the product and assess its sustainability.

IMPORTANT: Return ONLY a valid JSON object. No extra text, no explanations.

JSON format:
{
    "productName": "string",
    "brand": "string",
    "ingredientsImpact": "string",
    "packagingMaterial": "string",
    "carbonFootprint": "string",
    "recyclingFeasibility": "string",
    "alternativeOptions": "string",
    "sustainabilityRating": float,
    "healthImpact": "string",
    "recyclingTips": "string",
    "recommendations": {
        "environmental": ["string"],
        "health": ["string"],
        "social": ["string"]
    }
}

Keep each text field to two or three sentences. The sustainabilityRating is out of {{ .MaxScore }}.

{{ .RecommendationsFormat }}
`

const billPromptText = `Extract all product details from the bill image and analyze their sustainability.

IMPORTANT: Return ONLY a valid JSON object. No extra text, no explanations.

JSON format:
{
    "products": [
        {
            "productName": "string",
            "brand": "string",
            "ingredientsImpact": "string",
            "packagingMaterial": "string",
            "carbonFootprint": "string",
            "recyclingFeasibility": "string",
            "alternativeOptions": "string",
            "sustainabilityRating": float
        }
    ],
    "overallSustainabilityScore": float,
    "recommendations": {
        "environmental": ["string"],
        "health": ["string"],
        "social": ["string"]
    }
}

Ensure accurate product extraction from the receipt. Ratings and the overall score are out of {{ .MaxScore }}.

{{ .RecommendationsFormat }}
`

var (
	productPromptTemplate = newPromptTemplate("product", productPromptText)
	imagePromptTemplate   = newPromptTemplate("image", imagePromptText)
	billPromptTemplate    = newPromptTemplate("bill", billPromptText)
)

const maxScore = 5

func newPromptTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text))
}

type specification struct {
	Key   string
	Value string
}

type productPromptData struct {
	Title, Brand, Description, Price string
	Specifications                   []specification
	RecommendationsFormat            string
}

type scanPromptData struct {
	MaxScore              int
	RecommendationsFormat string
}

// BuildProductPrompt renders the analysis prompt for a product description.
// Specifications are listed in key order so equal requests give equal prompts.
func BuildProductPrompt(request *domain.ProductRequest) (string, error) {
	if request == nil {
		return "", domain.ErrInvalidInput
	}
	data := productPromptData{
		Title:                 request.Title,
		Brand:                 request.Brand,
		Description:           request.Description,
		Price:                 string(request.Price),
		Specifications:        sortedSpecifications(request.Specifications),
		RecommendationsFormat: recommendationsFormat,
	}
	return render(productPromptTemplate, data)
}

// BuildScanPrompt renders the prompt for an image modality
func BuildScanPrompt(kind domain.ScanKind) (string, error) {
	data := scanPromptData{MaxScore: maxScore, RecommendationsFormat: recommendationsFormat}
	switch kind {
	case domain.ScanKindImage:
		return render(imagePromptTemplate, data)
	case domain.ScanKindBill:
		return render(billPromptTemplate, data)
	default:
		return "", fmt.Errorf("%w: unknown scan kind %q", domain.ErrInvalidInput, kind)
	}
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func sortedSpecifications(specs map[string]string) []specification {
	if len(specs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(specs))
	for key := range specs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]specification, 0, len(keys))
	for _, key := range keys {
		out = append(out, specification{Key: key, Value: specs[key]})
	}
	return out
}
