package attendance

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// GET /attendance
	r.GET("/attendance", h.GetAttendance)
	// POST /attendance
	r.POST("/attendance", h.UpdateAttendance)
	// GET /attendance/export.csv?charset=shift_jis
	r.GET("/attendance/export.csv", h.ExportCSV)
}

// GetAttendance godoc
// @Summary  Fetch the full attendance matrix
// @Tags     attendance
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} AttendanceResponse
// @Failure  403 {object} map[string]any
// @Failure  503 {object} map[string]any
// @Router   /attendance [get]
func (h *Handler) GetAttendance(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateAttendance godoc
// @Summary  Save attendance for one date
// @Tags     attendance
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body UpdateRequest true "date and per-person presence"
// @Success  200 {object} UpdateResponse
// @Failure  400 {object} map[string]any
// @Failure  404 {object} map[string]any
// @Failure  502 {object} map[string]any
// @Failure  503 {object} map[string]any
// @Router   /attendance [post]
func (h *Handler) UpdateAttendance(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.Update(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(res.Skipped) > 0 {
		log.Printf("[INFO] attendance %s: %d matched, skipped %v", req.Date, res.Matched, res.Skipped)
	}
	c.JSON(http.StatusOK, res)
}

// ExportCSV godoc
// @Summary  Download the attendance matrix as CSV
// @Tags     attendance
// @Produce  text/csv
// @Security BearerAuth
// @Param    charset query string false "utf-8 (default), utf-8-bom or shift_jis"
// @Success  200 {string} string
// @Failure  400 {object} map[string]any
// @Failure  503 {object} map[string]any
// @Router   /attendance/export.csv [get]
func (h *Handler) ExportCSV(c *gin.Context) {
	charset := c.DefaultQuery("charset", DefaultCharset)
	body, err := h.svc.Export(c.Request.Context(), charset)
	if err != nil {
		writeError(c, err)
		return
	}

	ct := "text/csv; charset=utf-8"
	switch strings.ToLower(charset) {
	case "shift_jis", "sjis", "cp932":
		ct = "text/csv; charset=Shift_JIS"
	}
	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	c.Data(http.StatusOK, ct, body)
}

// ---------- helpers ----------

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func writeError(c *gin.Context, err error) {
	status := toHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	code, msg := codeOf(err)
	c.JSON(status, errorBody(code, msg))
}
