package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler exposes the public menu plus the staff catalog management
// endpoints
type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Public menu — no auth, active/available rows only
	menu := router.Group("/menu")
	{
		menu.GET("/categories", h.ListPublicCategories)
		menu.GET("/items", h.ListPublicMenuItems)
	}

	staff := middleware.RequireRole(model.RoleAdmin, model.RoleStaff)

	categories := router.Group("/api/categories")
	{
		categories.GET("", staff, h.ListCategories)
		categories.POST("", staff, h.CreateCategory)
		categories.PUT("/:id", staff, h.UpdateCategory)
		categories.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteCategory)
	}

	items := router.Group("/api/menu-items")
	{
		items.GET("", staff, h.ListMenuItems)
		items.GET("/:id", staff, h.GetMenuItem)
		items.POST("", staff, h.CreateMenuItem)
		items.PUT("/:id", staff, h.UpdateMenuItem)
		items.PATCH("/:id/availability", staff, h.SetAvailability)
		items.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteMenuItem)
	}
}

// ListPublicCategories serves the customer-facing category list
// @Summary      Public categories
// @Description  Lists active categories ordered for display. No authentication required.
// @Tags         menu
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.CategoryResponse}
// @Failure      500  {object}  response.Response
// @Router       /menu/categories [get]
func (h *CatalogHandler) ListPublicCategories(c *gin.Context) {
	categories, err := h.catalogService.ListPublicCategories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve categories"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// ListPublicMenuItems serves the customer-facing menu
// @Summary      Public menu items
// @Description  Lists active and available menu items, optionally filtered by category. No authentication required.
// @Tags         menu
// @Produce      json
// @Param        category_id  query     string  false  "Category ID filter"
// @Success      200  {object}  response.Response{data=[]service.MenuItemResponse}
// @Failure      400  {object}  response.Response
// @Router       /menu/items [get]
func (h *CatalogHandler) ListPublicMenuItems(c *gin.Context) {
	items, err := h.catalogService.ListPublicMenuItems(c.Request.Context(), c.Query("category_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// ListCategories is the staff view including inactive rows
// @Summary      List categories
// @Description  Retrieves every category, inactive ones included
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.CategoryResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve categories"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// CreateCategory creates a new menu category
// @Summary      Create category
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCategoryRequest  true  "Create Category Payload"
// @Success      201      {object}  response.Response{data=service.CategoryResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req service.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// UpdateCategory updates name, ordering and the active flag
// @Summary      Update category
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Category ID"
// @Param        payload  body      service.UpdateCategoryRequest  true  "Update Category Payload"
// @Success      200      {object}  response.Response{data=service.CategoryResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var req service.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	category, err := h.catalogService.UpdateCategory(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}

// DeleteCategory hard-deletes a category and cascades its items
// @Summary      Delete category
// @Description  Permanently deletes a category; its menu items cascade (admin only)
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Category ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/categories/{id} [delete]
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.catalogService.DeleteCategory(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Category deleted successfully"))
}

// ListMenuItems is the staff list including unavailable/inactive rows
// @Summary      List menu items
// @Description  Retrieves a paginated list of menu items regardless of flags
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by item name"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/menu-items [get]
func (h *CatalogHandler) ListMenuItems(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")

	items, total, err := h.catalogService.ListMenuItems(c.Request.Context(), params.Page, params.Limit, search)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve menu items: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetMenuItem fetches a single item with its category
// @Summary      Get menu item
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Menu Item ID"
// @Success      200  {object}  response.Response{data=service.MenuItemResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/menu-items/{id} [get]
func (h *CatalogHandler) GetMenuItem(c *gin.Context) {
	item, err := h.catalogService.GetMenuItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// CreateMenuItem creates a new catalog entry
// @Summary      Create menu item
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateMenuItemRequest  true  "Create Menu Item Payload"
// @Success      201      {object}  response.Response{data=service.MenuItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/menu-items [post]
func (h *CatalogHandler) CreateMenuItem(c *gin.Context) {
	var req service.CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.catalogService.CreateMenuItem(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// UpdateMenuItem updates an item's details and flags
// @Summary      Update menu item
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Menu Item ID"
// @Param        payload  body      service.UpdateMenuItemRequest  true  "Update Menu Item Payload"
// @Success      200      {object}  response.Response{data=service.MenuItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/menu-items/{id} [put]
func (h *CatalogHandler) UpdateMenuItem(c *gin.Context) {
	var req service.UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.catalogService.UpdateMenuItem(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// SetAvailability flips the out-of-stock flag without touching anything else
// @Summary      Toggle item availability
// @Description  Marks an item available or unavailable. Unavailable items stay listed for staff but drop out of the public menu.
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Menu Item ID"
// @Param        payload  body      service.SetAvailabilityRequest  true  "Availability Payload"
// @Success      200      {object}  response.Response{data=service.MenuItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/menu-items/{id}/availability [patch]
func (h *CatalogHandler) SetAvailability(c *gin.Context) {
	var req service.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.catalogService.SetAvailability(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// DeleteMenuItem permanently removes an item
// @Summary      Delete menu item
// @Description  Permanently deletes a menu item (admin only)
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Menu Item ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/menu-items/{id} [delete]
func (h *CatalogHandler) DeleteMenuItem(c *gin.Context) {
	if err := h.catalogService.DeleteMenuItem(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Menu item deleted successfully"))
}
