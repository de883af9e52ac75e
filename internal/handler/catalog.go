package handler

import (
	"net/http"

	"couponagent/internal/agent"
	"couponagent/internal/model"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the loaded coupon catalog and its item vocabulary
type CatalogHandler struct {
	bundles []model.Bundle
	menu    model.MenuResponse
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(bundles []model.Bundle, vocab agent.Vocabulary) *CatalogHandler {
	categories := vocab.Categories()
	menu := model.MenuResponse{Categories: make([]model.MenuCategory, 0, len(categories))}
	for _, cat := range categories {
		menu.Categories = append(menu.Categories, model.MenuCategory{
			Key:   cat.Key,
			Label: cat.Label,
			Icon:  cat.Icon,
			Items: cat.Items,
		})
	}

	return &CatalogHandler{
		bundles: bundles,
		menu:    menu,
	}
}

// Menu handles GET /api/v1/menu
func (h *CatalogHandler) Menu(c *gin.Context) {
	c.JSON(http.StatusOK, h.menu)
}

// Bundles handles GET /api/v1/bundles
func (h *CatalogHandler) Bundles(c *gin.Context) {
	c.JSON(http.StatusOK, model.BundleListResponse{
		Bundles: h.bundles,
		Total:   len(h.bundles),
	})
}
