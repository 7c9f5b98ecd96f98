package domain

import "time"

// ProductAssessment is the sustainability breakdown of a single physical product,
// either photographed directly or read from a bill line
type ProductAssessment struct {
	ProductName          string  `json:"productName"`
	Brand                string  `json:"brand"`
	IngredientsImpact    string  `json:"ingredientsImpact"`
	PackagingMaterial    string  `json:"packagingMaterial"`
	CarbonFootprint      string  `json:"carbonFootprint"`
	RecyclingFeasibility string  `json:"recyclingFeasibility"`
	AlternativeOptions   string  `json:"alternativeOptions"`
	SustainabilityRating float64 `json:"sustainabilityRating"` // 0-5
	HealthImpact         string  `json:"healthImpact,omitempty"`
	RecyclingTips        string  `json:"recyclingTips,omitempty"`
}

// ImageAnalysis is the result of analyzing a photo of one product
type ImageAnalysis struct {
	Error string `json:"error,omitempty"`
	ProductAssessment
	Recommendations Recommendations `json:"recommendations"`
}

// Failed reports whether the analysis is a fallback payload
func (a *ImageAnalysis) Failed() bool {
	return a.Error != ""
}

// BillAnalysis is the result of analyzing a photographed receipt
type BillAnalysis struct {
	Error                      string              `json:"error,omitempty"`
	Products                   []ProductAssessment `json:"products"`
	OverallSustainabilityScore float64             `json:"overallSustainabilityScore"`
	Recommendations            Recommendations     `json:"recommendations"`
}

// Failed reports whether the analysis is a fallback payload
func (a *BillAnalysis) Failed() bool {
	return a.Error != ""
}

// Image is raw image content forwarded to the generator
type Image struct {
	Data     []byte
	MIMEType string
}

// ScanKind identifies the image modality
type ScanKind string

const (
	ScanKindImage ScanKind = "image"
	ScanKindBill  ScanKind = "bill"
)

// ScanRequest is an image submitted for analysis
type ScanRequest struct {
	Image    *Image
	UserID   string
	ImageURL string
}

// HistoryEntry is a persisted scan
type HistoryEntry struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	Kind                ScanKind  `json:"kind"`
	ProductName         string    `json:"productName"`
	Brand               string    `json:"brand"`
	SustainabilityScore float64   `json:"sustainabilityScore"`
	ImageURL            string    `json:"imageUrl,omitempty"`
	Payload             string    `json:"payload"`
	ScannedAt           time.Time `json:"dateScanned"`
}
