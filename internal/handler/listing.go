package handler

import (
	"context"
	"net/http"
	"strconv"

	"housing-assistant/internal/model"

	"github.com/gin-gonic/gin"
)

// ListingReader looks up single inventory listings
type ListingReader interface {
	GetByID(ctx context.Context, id int64) (*model.HouseRecord, error)
}

// ListingHandler handles listing HTTP requests
type ListingHandler struct {
	listings ListingReader
}

// NewListingHandler creates a new listing handler
func NewListingHandler(listings ListingReader) *ListingHandler {
	return &ListingHandler{listings: listings}
}

// GetListing handles GET /api/v1/listings/:id
func (h *ListingHandler) GetListing(c *gin.Context) {
	listingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	listing, err := h.listings.GetByID(c.Request.Context(), listingID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}
