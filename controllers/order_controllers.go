package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-tableorder/middlewares"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/services"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// PlaceOrder -> POST /sessions/:session_id/orders
//
// On the public route the order is the customer's. Behind staff auth the
// creator is the staff member and confirm may be set.
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	var req struct {
		Items   []services.OrderItemInput `json:"items" binding:"required,min=1,max=50,dive"`
		Confirm bool                      `json:"confirm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	in := services.PlaceOrderInput{
		SessionID: sessionID,
		Items:     req.Items,
		CreatedBy: models.CreatedByCustomer,
	}
	if uid := middlewares.UserID(c); uid != 0 {
		in.CreatedBy = fmt.Sprintf("staff:%d", uid)
		in.Confirm = req.Confirm
	}

	order, err := oc.Orders.PlaceOrder(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order placed", order)
}

// ListOrders -> GET /orders?session_id=&status=PENDING,CONFIRMED
func (oc *OrderController) ListOrders(c *gin.Context) {
	var f services.OrderFilter
	var err error
	if f.SessionID, err = queryID(c, "session_id"); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	for _, s := range splitList(c.Query("status")) {
		f.ItemStatuses = append(f.ItemStatuses, models.ItemStatus(strings.ToUpper(s)))
	}

	orders, err := oc.Orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// ListSessionOrders -> GET /sessions/:session_id/orders
func (oc *OrderController) ListSessionOrders(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	orders, err := oc.Orders.ListOrders(c.Request.Context(), services.OrderFilter{SessionID: sessionID})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrder -> GET /orders/:order_id
func (oc *OrderController) GetOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

type itemStatusRequest struct {
	Status models.ItemStatus `json:"status" binding:"required,item_status"`
}

// UpdateItemStatus -> PATCH /orders/:order_id/items/:item_id/status
func (oc *OrderController) UpdateItemStatus(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var req itemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.UpdateItemStatus(c.Request.Context(), orderID, itemID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item status updated", order)
}

// UpdateOrderStatus -> PATCH /orders/:order_id/status, applies to every item.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req itemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.UpdateAllItemStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}
