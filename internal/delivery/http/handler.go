package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/imageio"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/logging"
	"github.com/jeevankumar-m/sustainedaway/internal/usecase"
)

const (
	serviceName = "sustainedaway"
	version     = "1.0.0"

	// MaxBatchSize bounds the number of products in one batch request
	MaxBatchSize = 50
)

// AnalysisUseCase defines the interface for the analysis pipeline
type AnalysisUseCase interface {
	AnalyzeProduct(ctx context.Context, request *domain.ProductRequest) *domain.ProductAnalysis
	AnalyzeProducts(ctx context.Context, requests []*domain.ProductRequest) []*domain.ProductAnalysis
	AnalyzeImage(ctx context.Context, request domain.ScanRequest) (*domain.ImageAnalysis, string)
	AnalyzeBill(ctx context.Context, request domain.ScanRequest) (*domain.BillAnalysis, string)
	History(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service AnalysisUseCase
}

// NewHandler creates a new HTTP handler. service may be nil, in which case
// analysis endpoints answer 501.
func NewHandler(service AnalysisUseCase) *Handler {
	return &Handler{service: service}
}

// ScanRequest is the body of the image and bill endpoints
type ScanRequest struct {
	Base64Image string `json:"base64Image"`
	UserID      string `json:"userId"`
	ImageURL    string `json:"imageUrl"`
}

// ImageResponse is an image analysis plus the ID of its history record
type ImageResponse struct {
	ID string `json:"id,omitempty"`
	*domain.ImageAnalysis
}

// BillResponse is a bill analysis plus the ID of its history record
type BillResponse struct {
	ID string `json:"id,omitempty"`
	*domain.BillAnalysis
}

// Root confirms the server is up
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "SustainedAway analysis server is running",
	})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": version,
	})
}

// AnalyzeProduct handles product description analysis
func (h *Handler) AnalyzeProduct(c *gin.Context) {
	if !h.requireService(c) {
		return
	}

	var request domain.ProductRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logging.FromContext(c.Request.Context()).Warn("Invalid product request", "err", err)
		c.JSON(bodyErrorStatus(err), usecase.ProductInputFailure())
		return
	}

	c.JSON(http.StatusOK, h.service.AnalyzeProduct(c.Request.Context(), &request))
}

// AnalyzeProductBatch handles analysis of many product descriptions
func (h *Handler) AnalyzeProductBatch(c *gin.Context) {
	if !h.requireService(c) {
		return
	}

	var requests []*domain.ProductRequest
	if err := c.ShouldBindJSON(&requests); err != nil {
		logging.FromContext(c.Request.Context()).Warn("Invalid batch request", "err", err)
		c.JSON(bodyErrorStatus(err), usecase.ProductInputFailure())
		return
	}
	if len(requests) > MaxBatchSize {
		c.JSON(http.StatusBadRequest, usecase.BatchTooLargeFailure(MaxBatchSize))
		return
	}

	c.JSON(http.StatusOK, h.service.AnalyzeProducts(c.Request.Context(), requests))
}

// ScanImage handles analysis of a photographed product
func (h *Handler) ScanImage(c *gin.Context) {
	if !h.requireService(c) {
		return
	}

	scan, status, failure := h.bindScan(c)
	if failure != nil {
		c.JSON(status, ImageResponse{ImageAnalysis: imageFailure(failure)})
		return
	}

	analysis, id := h.service.AnalyzeImage(c.Request.Context(), scan)
	c.JSON(http.StatusOK, ImageResponse{ID: id, ImageAnalysis: analysis})
}

// ScanBill handles analysis of a photographed receipt
func (h *Handler) ScanBill(c *gin.Context) {
	if !h.requireService(c) {
		return
	}

	scan, status, failure := h.bindScan(c)
	if failure != nil {
		c.JSON(status, BillResponse{BillAnalysis: billFailure(failure)})
		return
	}

	analysis, id := h.service.AnalyzeBill(c.Request.Context(), scan)
	c.JSON(http.StatusOK, BillResponse{ID: id, BillAnalysis: analysis})
}

// History lists the scans of a user
func (h *Handler) History(c *gin.Context) {
	if !h.requireService(c) {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	entries, err := h.service.History(c.Request.Context(), c.Query("userId"), limit)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
	case errors.Is(err, domain.ErrHistoryUnavailable):
		logging.FromContext(c.Request.Context()).Error("History lookup failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan history is unavailable"})
	case err != nil:
		logging.FromContext(c.Request.Context()).Error("History lookup failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scan history"})
	default:
		c.JSON(http.StatusOK, gin.H{"history": entries})
	}
}

func (h *Handler) requireService(c *gin.Context) bool {
	if h.service != nil {
		return true
	}
	c.JSON(http.StatusNotImplemented, gin.H{
		"error": "Analysis service not configured",
	})
	return false
}

// bindScan decodes a scan body. On failure it returns the status and the
// error to render as a fallback payload.
func (h *Handler) bindScan(c *gin.Context) (domain.ScanRequest, int, error) {
	var body ScanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		logging.FromContext(c.Request.Context()).Warn("Invalid scan request", "err", err)
		return domain.ScanRequest{}, bodyErrorStatus(err), domain.ErrInvalidInput
	}
	if strings.TrimSpace(body.Base64Image) == "" {
		return domain.ScanRequest{}, http.StatusBadRequest, errNoImage
	}

	image, err := imageio.DecodeBase64(body.Base64Image)
	if err != nil {
		logging.FromContext(c.Request.Context()).Warn("Unusable image upload", "err", err)
		if errors.Is(err, domain.ErrInvalidInput) {
			err = errNoImage
		}
		return domain.ScanRequest{}, http.StatusBadRequest, err
	}

	return domain.ScanRequest{Image: image, UserID: body.UserID, ImageURL: body.ImageURL}, 0, nil
}

var errNoImage = errors.New(usecase.MsgNoImage)

func imageFailure(err error) *domain.ImageAnalysis {
	switch {
	case errors.Is(err, errNoImage):
		return usecase.ImageInputFailure(usecase.MsgNoImage)
	case errors.Is(err, domain.ErrInvalidInput):
		return usecase.ImageInputFailure(usecase.MsgInvalidInput)
	default:
		return usecase.ImageFailure(err)
	}
}

func billFailure(err error) *domain.BillAnalysis {
	switch {
	case errors.Is(err, errNoImage):
		return usecase.BillInputFailure(usecase.MsgNoImage)
	case errors.Is(err, domain.ErrInvalidInput):
		return usecase.BillInputFailure(usecase.MsgInvalidInput)
	default:
		return usecase.BillFailure(err)
	}
}

// bodyErrorStatus maps a body decoding error to 413 or 400
func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
