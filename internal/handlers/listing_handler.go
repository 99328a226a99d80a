package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/mansoora/rehaish/internal/errors"
	"github.com/mansoora/rehaish/internal/middleware"
	"github.com/mansoora/rehaish/internal/models"
	"github.com/mansoora/rehaish/internal/services"
)

// ListingHandler handles listing-related HTTP requests.
type ListingHandler struct {
	service services.ListingService
}

// NewListingHandler creates a new ListingHandler instance.
func NewListingHandler(service services.ListingService) *ListingHandler {
	return &ListingHandler{
		service: service,
	}
}

// UploadPropertyRequest is the JSON body of the upload endpoint. Binding tags
// keep malformed payloads out of the core.
type UploadPropertyRequest struct {
	City        string  `json:"city" binding:"required,min=2"`
	Area        string  `json:"area" binding:"required,min=2"`
	Electricity string  `json:"electricity" binding:"required"`
	Gas         string  `json:"gas" binding:"required"`
	Location    string  `json:"location" binding:"required"`
	SizeMarla   float64 `json:"size_marla" binding:"required,gt=0"`
	Stories     int     `json:"stories" binding:"required,gt=0"`
	Bedrooms    int     `json:"bedrooms" binding:"required,gt=0"`
	Bathrooms   int     `json:"bathrooms" binding:"required,gt=0"`
	Price       int     `json:"price" binding:"required,gt=0"`
}

// UpdateStatusRequest is the JSON body of the status update endpoint.
// The enum itself is validated by the service so the error message can name
// the allowed values.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UploadPropertyResponse echoes the key fields of the newly listed property.
type UploadPropertyResponse struct {
	Message string             `json:"message"`
	Data    UploadPropertyData `json:"data"`
}

// UploadPropertyData is the subset of listing fields returned after upload.
type UploadPropertyData struct {
	City      string        `json:"city"`
	Area      string        `json:"area"`
	Status    models.Status `json:"status"`
	SizeMarla float64       `json:"size_marla"`
	Price     int           `json:"price"`
	ID        int           `json:"id"`
}

// Upload handles POST /api/upload-property.
// It appends the listing to the record store; the search index update runs
// best-effort behind the committed write.
func (h *ListingHandler) Upload(c *gin.Context) {
	var req UploadPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	listing, err := h.service.Upload(c.Request.Context(), services.UploadListingInput{
		City:        req.City,
		Area:        req.Area,
		SizeMarla:   req.SizeMarla,
		Stories:     req.Stories,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		Price:       req.Price,
		Electricity: req.Electricity,
		Gas:         req.Gas,
		Location:    req.Location,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidListing) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Failed to save property listing", err)
		return
	}

	c.JSON(http.StatusCreated, UploadPropertyResponse{
		Message: "Your property has been listed successfully!",
		Data: UploadPropertyData{
			ID:        listing.ID,
			City:      listing.City,
			Area:      listing.Area,
			SizeMarla: listing.SizeMarla,
			Price:     listing.Price,
			Status:    listing.Status,
		},
	})
}

// UpdateStatus handles PUT /api/property/:id/status.
func (h *ListingHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		apierrors.BadRequest(c, "Property id must be a positive integer", nil)
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	listing, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		if errors.Is(err, services.ErrListingNotFound) {
			apierrors.NotFound(c, "Property not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to update property status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Property status updated successfully",
		"property": listing,
	})
}

// List handles GET /api/owner/properties.
// Demo scope: returns every listing; per-owner filtering needs an ownership
// column the data files don't carry yet.
func (h *ListingHandler) List(c *gin.Context) {
	listings, err := h.service.List(c.Request.Context())
	if err != nil {
		apierrors.InternalServerError(c, "Failed to fetch properties", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"properties": listings,
		"count":      len(listings),
	})
}

// Get handles GET /api/property/:id.
func (h *ListingHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		apierrors.BadRequest(c, "Property id must be a positive integer", nil)
		return
	}

	listing, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			apierrors.NotFound(c, "Property not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to fetch property", err)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Debug("Property fetched", map[string]interface{}{
			"listing_id": listing.ID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"property": listing})
}
