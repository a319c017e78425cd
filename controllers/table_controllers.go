package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-tableorder/services"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

type TableController struct {
	Tables   *services.TableService
	Sessions *services.SessionService
	// PublicURL prefixes the link in table QR codes; the request host is used when empty.
	PublicURL string
}

func NewTableController(tables *services.TableService, sessions *services.SessionService, publicURL string) *TableController {
	return &TableController{Tables: tables, Sessions: sessions, PublicURL: publicURL}
}

// CreateTable -> POST /tables
func (tc *TableController) CreateTable(c *gin.Context) {
	var req services.CreateTableInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.CreateTable(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.WithField("table", table.ID).Infof("table %s created", table.Name)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// UpdateTable -> PUT /tables/:table_id
func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var req services.UpdateTableInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	table, err := tc.Tables.UpdateTable(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// GetAllTables -> GET /tables
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.ListTables(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetTable -> GET /tables/:table_id
func (tc *TableController) GetTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.GetTable(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// ScanTable -> GET /scan/:token, resolves a scanned QR code.
func (tc *TableController) ScanTable(c *gin.Context) {
	table, err := tc.Tables.GetTableByQR(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// QRCode -> GET /tables/:table_id/qrcode?size=
func (tc *TableController) QRCode(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	size := 256
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > 1024 {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("size must be between 64 and 1024"))
			return
		}
		size = n
	}

	table, err := tc.Tables.GetTable(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	base := tc.PublicURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	png, err := utils.TableQRCodePNG(base, table.QRCode, size)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="table-%d.png"`, table.ID))
	c.Data(http.StatusOK, "image/png", png)
}

// DeleteTable -> DELETE /tables/:table_id
func (tc *TableController) DeleteTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	if err := tc.Tables.DeleteTable(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.WithField("table", id).Info("table deleted")
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{
		"id": id,
	})
}

// CallStaff -> POST /tables/:table_id/call-staff
func (tc *TableController) CallStaff(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Sessions.CallStaff(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Staff has been called", table)
}

// ResolveHelp -> POST /tables/:table_id/resolve-help
func (tc *TableController) ResolveHelp(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Sessions.ResolveHelp(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Help request resolved", table)
}
