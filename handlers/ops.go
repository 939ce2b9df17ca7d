package handlers

import (
	"ident_index_app_go/db"
	"ident_index_app_go/models"
	"ident_index_app_go/services"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports database reachability and the outbox backlog
func HealthHandler(c echo.Context) error {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}

	pending, err := services.CountPendingOutbox(db.DB.WithContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to count outbox")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"outbox_pending": pending,
	})
}

// auditLogItem is an audit row with its field-level changes expanded
type auditLogItem struct {
	models.AuditLog
	Changes []models.AuditChange `json:"changes"`
}

func auditLogItems(logs []models.AuditLog) []auditLogItem {
	items := make([]auditLogItem, 0, len(logs))
	for i := range logs {
		changes := logs[i].Changes()
		if changes == nil {
			changes = []models.AuditChange{}
		}
		items = append(items, auditLogItem{AuditLog: logs[i], Changes: changes})
	}
	return items
}

// GetAuditLogsHandler returns filtered and paginated audit logs
func GetAuditLogsHandler(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 50

	dateFrom, dateTo, err := services.ParseDateRange(c.QueryParam("date_from"), c.QueryParam("date_to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	filters := services.AuditLogFilters{
		UserName:    c.QueryParam("user"),
		Action:      c.QueryParam("action"),
		SearchQuery: c.QueryParam("search"),
		DateFrom:    dateFrom,
		DateTo:      dateTo,
	}

	logs, total, err := services.ListAuditLogs(db.DB.WithContext(c.Request().Context()), filters, page, pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load audit logs")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"logs":      auditLogItems(logs),
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetSubjectAuditHandler returns the audit history of one SID
func GetSubjectAuditHandler(c echo.Context) error {
	sid := c.Param("sid")
	logs, err := services.GetSubjectAuditHistory(db.DB.WithContext(c.Request().Context()), sid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load audit history")
	}
	return c.JSON(http.StatusOK, auditLogItems(logs))
}
