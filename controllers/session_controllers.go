package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/services"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

type SessionController struct {
	Sessions *services.SessionService
}

func NewSessionController(sessions *services.SessionService) *SessionController {
	return &SessionController{Sessions: sessions}
}

// OpenOrJoin -> POST /tables/:table_id/session
func (sc *SessionController) OpenOrJoin(c *gin.Context) {
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}

	res, err := sc.Sessions.OpenOrJoin(c.Request.Context(), tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	code, msg := http.StatusOK, "Joined active session"
	if res.Created {
		code, msg = http.StatusCreated, "Session opened"
	}
	utils.RespondJSON(c, code, msg, res)
}

// GetSession -> GET /sessions/:session_id
func (sc *SessionController) GetSession(c *gin.Context) {
	id, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	session, err := sc.Sessions.GetSession(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session detail", session)
}

// ListSessions -> GET /sessions?table_id=&status=OPEN,PAID&limit=
func (sc *SessionController) ListSessions(c *gin.Context) {
	var f services.SessionFilter
	var err error
	if f.TableID, err = queryID(c, "table_id"); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	for _, s := range splitList(c.Query("status")) {
		f.Statuses = append(f.Statuses, models.SessionStatus(strings.ToUpper(s)))
	}
	if raw := c.Query("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil || f.Limit < 0 {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid limit"))
			return
		}
	}

	sessions, err := sc.Sessions.ListSessions(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of sessions", sessions)
}

// UpdateStatus -> PATCH /sessions/:session_id/status
func (sc *SessionController) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	var req struct {
		Status        models.SessionStatus  `json:"status" binding:"required,session_status"`
		PaymentMethod *models.PaymentMethod `json:"payment_method" binding:"omitempty,payment_method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := sc.Sessions.Transition(c.Request.Context(), id, req.Status, req.PaymentMethod)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session status updated", session)
}

// CloseSession -> POST /sessions/:session_id/close
func (sc *SessionController) CloseSession(c *gin.Context) {
	id, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	session, err := sc.Sessions.Close(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session closed", session)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
