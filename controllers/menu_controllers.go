package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-tableorder/services"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

type MenuController struct {
	Menu *services.MenuService
}

func NewMenuController(menu *services.MenuService) *MenuController {
	return &MenuController{Menu: menu}
}

// GetCategories -> GET /menu/categories
func (mc *MenuController) GetCategories(c *gin.Context) {
	categories, err := mc.Menu.ListCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of categories", categories)
}

// GetProducts -> GET /menu/products?category_id=&all=true
//
// Only available products are listed unless all=true.
func (mc *MenuController) GetProducts(c *gin.Context) {
	categoryID, err := queryID(c, "category_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	all, _ := strconv.ParseBool(c.DefaultQuery("all", "false"))

	products, err := mc.Menu.ListProducts(c.Request.Context(), services.ProductFilter{
		CategoryID:    categoryID,
		AvailableOnly: !all,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", products)
}

// SetAvailability -> PATCH /menu/products/:product_id/availability
func (mc *MenuController) SetAvailability(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	var req struct {
		IsAvailable *bool `json:"is_available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.IsAvailable == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("is_available is required"))
		return
	}

	product, err := mc.Menu.SetAvailability(c.Request.Context(), id, *req.IsAvailable)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product availability updated", product)
}

// GetCategory -> GET /menu/categories/:category_id
func (mc *MenuController) GetCategory(c *gin.Context) {
	id, ok := paramID(c, "category_id")
	if !ok {
		return
	}
	category, err := mc.Menu.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category detail", category)
}

// CreateCategory -> POST /menu/categories
func (mc *MenuController) CreateCategory(c *gin.Context) {
	var req services.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	category, err := mc.Menu.CreateCategory(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

// UpdateCategory -> PUT /menu/categories/:category_id
func (mc *MenuController) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "category_id")
	if !ok {
		return
	}
	var req services.CategoryUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	category, err := mc.Menu.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

// DeleteCategory -> DELETE /menu/categories/:category_id
func (mc *MenuController) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "category_id")
	if !ok {
		return
	}
	if err := mc.Menu.DeleteCategory(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category deleted", gin.H{"category_id": id})
}

// GetProduct -> GET /menu/products/:product_id
func (mc *MenuController) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	product, err := mc.Menu.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product detail", product)
}

// CreateProduct -> POST /menu/products
func (mc *MenuController) CreateProduct(c *gin.Context) {
	var req services.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	product, err := mc.Menu.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Product created", product)
}

// UpdateProduct -> PUT /menu/products/:product_id
func (mc *MenuController) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	var req services.ProductUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	product, err := mc.Menu.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product updated", product)
}

// DeleteProduct -> DELETE /menu/products/:product_id
func (mc *MenuController) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	if err := mc.Menu.DeleteProduct(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product deleted", gin.H{"product_id": id})
}
