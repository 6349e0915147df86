package whitelist

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall-backend/internal/platform/auth"
)

// RequireAuthorized: auth.RequireAuth の後に置く。リストに無ければ 403
func RequireAuthorized(g *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := auth.EmailFrom(c)
		ok, err := g.IsAuthorized(c.Request.Context(), email)
		if err != nil {
			log.Printf("[ERROR] whitelist check for %s: %v", email, err)
			c.AbortWithStatusJSON(toHTTPStatus(err), errorFromErr(err))
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden,
				errorBody(CodeUnauthorized, "this account is not authorized; ask an administrator to add your email"))
			return
		}
		c.Next()
	}
}

type Handler struct{ gate *Gate }

// RegisterSelfRoutes: 認証済みなら誰でも呼べる（自分が許可されているかの確認）
func RegisterSelfRoutes(r gin.IRoutes, g *Gate) {
	h := &Handler{gate: g}
	r.GET("/me/authorization", h.CheckSelf)
}

// RegisterRoutes: RequireAuthorized の内側に置く
func RegisterRoutes(r gin.IRoutes, g *Gate) {
	h := &Handler{gate: g}
	r.GET("/authorized-emails", h.List)
	r.POST("/authorized-emails", h.Add)
	r.DELETE("/authorized-emails/:email", h.Remove)
}

type AuthorizationResponse struct {
	Email      string `json:"email"`
	Authorized bool   `json:"authorized"`
}

// CheckSelf godoc
// @Summary  Report whether the caller's email is on the authorized list
// @Tags     authorization
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} AuthorizationResponse
// @Failure  503 {object} map[string]any
// @Router   /me/authorization [get]
func (h *Handler) CheckSelf(c *gin.Context) {
	email := auth.EmailFrom(c)
	ok, err := h.gate.IsAuthorized(c.Request.Context(), email)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, AuthorizationResponse{Email: email, Authorized: ok})
}

type ListResponse struct {
	Emails  []string `json:"emails"`
	Entries []Entry  `json:"entries,omitempty"`
}

// List godoc
// @Summary  List authorized emails
// @Tags     authorization
// @Produce  json
// @Security BearerAuth
// @Param    detail query bool false "include who added each email and when"
// @Success  200 {object} ListResponse
// @Router   /authorized-emails [get]
func (h *Handler) List(c *gin.Context) {
	emails, err := h.gate.ListAuthorized(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	resp := ListResponse{Emails: emails}
	if v := c.Query("detail"); v == "true" || v == "1" {
		entries, err := h.gate.Entries(c.Request.Context())
		if err != nil {
			c.JSON(toHTTPStatus(err), errorFromErr(err))
			return
		}
		resp.Entries = entries
	}
	c.JSON(http.StatusOK, resp)
}

type AddRequest struct {
	Email string `json:"email" binding:"required"`
}

// Add godoc
// @Summary  Authorize an email
// @Tags     authorization
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body AddRequest true "email to authorize"
// @Success  201 {object} map[string]string
// @Failure  400 {object} map[string]any
// @Failure  409 {object} map[string]any
// @Router   /authorized-emails [post]
func (h *Handler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "email is required"))
		return
	}

	added, err := h.gate.AddAuthorized(c.Request.Context(), req.Email, auth.EmailFrom(c))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	if !added {
		c.JSON(http.StatusConflict, errorBody(CodeConflict, "email is already authorized"))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "authorized", "email": Normalize(req.Email)})
}

// Remove godoc
// @Summary  Remove an email from the authorized list
// @Tags     authorization
// @Produce  json
// @Security BearerAuth
// @Param    email path string true "email to remove"
// @Success  200 {object} map[string]string
// @Failure  404 {object} map[string]any
// @Failure  409 {object} map[string]any
// @Router   /authorized-emails/{email} [delete]
func (h *Handler) Remove(c *gin.Context) {
	email := Normalize(c.Param("email"))
	acting := auth.EmailFrom(c)
	if email == Normalize(acting) {
		c.JSON(http.StatusConflict, errorBody(CodeConflict, "you cannot remove your own email"))
		return
	}

	removed, err := h.gate.RemoveAuthorized(c.Request.Context(), email, acting)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, errorBody(CodeNotFound, "email is not on the authorized list"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed", "email": email})
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

func errorFromErr(err error) errorDTO {
	var api *APIError
	if errors.As(err, &api) {
		return errorBody(api.Code, api.Message)
	}
	log.Printf("[ERROR] whitelist: %v", err)
	return errorBody(CodeInternal, "internal error")
}
