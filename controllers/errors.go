package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/services"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidState):
		code = http.StatusConflict
	case errors.Is(err, services.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, services.ErrConcurrencyConflict):
		code = http.StatusServiceUnavailable
	}

	if code >= http.StatusInternalServerError {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"path": c.FullPath(),
		}).WithError(err).Error("request failed")
		if code == http.StatusInternalServerError {
			err = errors.New("internal server error")
		}
	}
	_ = c.Error(err)
	utils.RespondError(c, code, err)
}

// paramID reads a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

func queryID(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}
