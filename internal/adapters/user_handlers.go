package adapters

import (
	"net/http"

	"github.com/announa/blogpost/internal/auth"
	"github.com/announa/blogpost/internal/domain"
	"github.com/gin-gonic/gin"
)

type setRoleRequest struct {
	Role domain.Role `json:"role" binding:"required"`
}

func (r *RestAPI) listUsers(c *gin.Context) {
	var page domain.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		r.badRequest(c, err)
		return
	}
	result, err := r.services.Users.List(c.Request.Context(), page)
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *RestAPI) getUser(c *gin.Context) {
	user, err := r.services.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (r *RestAPI) setUserRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	user, err := r.services.Users.SetRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (r *RestAPI) deleteUser(c *gin.Context) {
	if claims, ok := auth.ClaimsFrom(c); ok && claims.UserID == c.Param("id") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "admins cannot delete their own account"})
		return
	}
	if err := r.services.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
