package usecase

import (
	"errors"
	"fmt"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
)

// Error messages carried in the error field of fallback payloads
const (
	MsgInvalidAIResponse = "Invalid JSON response from AI."
	MsgNoAIResponse      = "No valid response from AI."
	MsgInvalidInput      = "Invalid input JSON"
	MsgNoImagePath       = "No image path provided."
	MsgNoImage           = "No image provided."
	MsgBatchTooLarge     = "Batch too large: at most %d products per request"
)

// Placeholder texts used in fallback payloads
const (
	FailedToAnalyzeProduct = "Failed to analyze product."
	FailedToAnalyzeImage   = "Failed to analyze image."
	FailedToParseInput     = "Failed to parse input."
	RequestRejected        = "Request rejected."
	UnexpectedError        = "An unexpected error occurred."
	TryAgainLater          = "Please try again later."
	TryAgain               = "Please try again."
)

// ProductInputFailure is returned when the caller's product payload cannot be decoded
func ProductInputFailure() *domain.ProductAnalysis {
	return productFallback(MsgInvalidInput, "", FailedToParseInput, TryAgain)
}

// BatchTooLargeFailure is returned when a batch holds more than limit products
func BatchTooLargeFailure(limit int) *domain.ProductAnalysis {
	return productFallback(fmt.Sprintf(MsgBatchTooLarge, limit), "", RequestRejected, TryAgain)
}

// ProductFailure converts a pipeline error into a product fallback payload
func ProductFailure(title string, err error) *domain.ProductAnalysis {
	switch {
	case errors.Is(err, domain.ErrInvalidAIResponse):
		return productFallback(MsgInvalidAIResponse, title, FailedToAnalyzeProduct, TryAgainLater)
	case errors.Is(err, domain.ErrEmptyResponse):
		return productFallback(MsgNoAIResponse, title, FailedToAnalyzeProduct, TryAgainLater)
	default:
		return productFallback("Error analyzing product: "+errorText(err), title, UnexpectedError, TryAgainLater)
	}
}

func productFallback(message, title, analysisText, recommendation string) *domain.ProductAnalysis {
	return &domain.ProductAnalysis{
		Error: message,
		Title: title,
		Score: 0,
		Analysis: domain.Analysis{
			Environmental: analysisText,
			Health:        analysisText,
			Social:        analysisText,
		},
		Recommendations: domain.UniformRecommendations(recommendation),
		Certifications:  []string{},
		KeyFeatures: domain.KeyFeatures{
			Positive: []string{},
			Negative: []string{},
		},
	}
}

// ImageInputFailure is returned when no usable image reached the pipeline
func ImageInputFailure(message string) *domain.ImageAnalysis {
	return &domain.ImageAnalysis{
		Error:             message,
		ProductAssessment: failedAssessment(FailedToAnalyzeImage),
		Recommendations:   domain.UniformRecommendations(TryAgain),
	}
}

// ImageFailure converts a pipeline error into an image fallback payload
func ImageFailure(err error) *domain.ImageAnalysis {
	message, detail := scanFailure("Error processing image: ", err)
	return &domain.ImageAnalysis{
		Error:             message,
		ProductAssessment: failedAssessment(detail),
		Recommendations:   domain.UniformRecommendations(TryAgainLater),
	}
}

// BillInputFailure is returned when no usable bill image reached the pipeline
func BillInputFailure(message string) *domain.BillAnalysis {
	return &domain.BillAnalysis{
		Error:           message,
		Products:        []domain.ProductAssessment{},
		Recommendations: domain.UniformRecommendations(TryAgain),
	}
}

// BillFailure converts a pipeline error into a bill fallback payload
func BillFailure(err error) *domain.BillAnalysis {
	message, _ := scanFailure("Error processing bill: ", err)
	return &domain.BillAnalysis{
		Error:           message,
		Products:        []domain.ProductAssessment{},
		Recommendations: domain.UniformRecommendations(TryAgainLater),
	}
}

// scanFailure picks the error message and placeholder text for image modalities
func scanFailure(prefix string, err error) (message, detail string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAIResponse):
		return MsgInvalidAIResponse, FailedToAnalyzeImage
	case errors.Is(err, domain.ErrEmptyResponse):
		return MsgNoAIResponse, FailedToAnalyzeImage
	default:
		return prefix + errorText(err), UnexpectedError
	}
}

func failedAssessment(detail string) domain.ProductAssessment {
	return domain.ProductAssessment{
		IngredientsImpact:    detail,
		PackagingMaterial:    detail,
		CarbonFootprint:      detail,
		RecyclingFeasibility: detail,
		AlternativeOptions:   detail,
	}
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
