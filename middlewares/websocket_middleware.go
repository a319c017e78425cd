package middlewares

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

// CtxSubscriber holds the realtime.Subscriber built from the handshake.
const CtxSubscriber = "subscriber"

// WebSocketHandshake validates the handshake parameters before the upgrade.
// role is required; customers must name their table, staff and admin must
// present a token issued for that role.
func WebSocketHandshake() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.Role(c.Query("role"))
		if !role.IsValid() {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("role must be one of customer, staff, admin"))
			c.Abort()
			return
		}

		sub := realtime.Subscriber{
			ID:        uuid.NewString(),
			Role:      role,
			TableID:   c.Query("tableId"),
			SessionID: c.Query("sessionId"),
		}
		if !numericOrEmpty(sub.TableID) || !numericOrEmpty(sub.SessionID) {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("tableId and sessionId must be numeric"))
			c.Abort()
			return
		}

		if role == models.RoleCustomer {
			if sub.TableID == "" {
				utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("tableId is required for customers"))
				c.Abort()
				return
			}
		} else {
			token := c.Query("token")
			if token == "" {
				token = bearerToken(c)
			}
			if token == "" {
				utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("token is required for %s", role))
				c.Abort()
				return
			}
			claims, err := utils.ParseToken(token)
			if err != nil {
				utils.RespondError(c, http.StatusUnauthorized, err)
				c.Abort()
				return
			}
			granted := models.Role(claims.Role)
			if granted != role && !(granted == models.RoleAdmin && role == models.RoleStaff) {
				utils.RespondError(c, http.StatusForbidden, fmt.Errorf("token does not grant role %s", role))
				c.Abort()
				return
			}
			c.Set(CtxUserID, claims.UserID)
		}

		c.Set(CtxSubscriber, sub)
		c.Next()
	}
}

func numericOrEmpty(s string) bool {
	if s == "" {
		return true
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
