package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/middlewares"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/services"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

type RealtimeController struct {
	Hub    *realtime.Hub
	Tables *services.TableService
}

func NewRealtimeController(hub *realtime.Hub, tables *services.TableService) *RealtimeController {
	return &RealtimeController{Hub: hub, Tables: tables}
}

// ServeWS -> GET /ws?role=&tableId=&sessionId=&token=
//
// Runs after middlewares.WebSocketHandshake.
func (rc *RealtimeController) ServeWS(c *gin.Context) {
	sub, ok := c.MustGet(middlewares.CtxSubscriber).(realtime.Subscriber)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	if sub.Role == models.RoleCustomer {
		id, _ := strconv.ParseUint(sub.TableID, 10, 64)
		if _, err := rc.Tables.GetTable(c.Request.Context(), uint(id)); err != nil {
			respondServiceError(c, err)
			return
		}
	}

	// the upgrader writes its own error response
	if err := rc.Hub.ServeWS(c.Writer, c.Request, sub); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"role":  sub.Role,
			"table": sub.TableID,
		}).WithError(err).Warn("websocket upgrade failed")
	}
}

// Clients -> GET /realtime/clients
func (rc *RealtimeController) Clients(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Connected clients", gin.H{
		"count":   rc.Hub.ClientCount(),
		"clients": rc.Hub.Subscribers(),
	})
}
