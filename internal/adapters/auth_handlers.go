package adapters

import (
	"net/http"

	"github.com/announa/blogpost/internal/auth"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

func (r *RestAPI) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	session, err := r.services.Auth.Register(c.Request.Context(), req.Username, req.Email, req.Password, c.Request.UserAgent())
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	r.setSessionCookies(c, session)
	c.JSON(http.StatusCreated, session)
}

func (r *RestAPI) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	session, err := r.services.Auth.Login(c.Request.Context(), req.Email, req.Password, c.Request.UserAgent())
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	r.setSessionCookies(c, session)
	c.JSON(http.StatusOK, session)
}

// presentedRefreshToken prefers the request body over the cookie.
func presentedRefreshToken(c *gin.Context) string {
	var req refreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := c.Cookie(RefreshCookie); err == nil {
		return cookie
	}
	return ""
}

func (r *RestAPI) refreshToken(c *gin.Context) {
	token := presentedRefreshToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "refresh token required"})
		return
	}
	session, err := r.services.Auth.Refresh(c.Request.Context(), token, c.Request.UserAgent())
	if err != nil {
		r.clearSessionCookies(c)
		r.handleServiceError(c, err)
		return
	}
	r.setSessionCookies(c, session)
	c.JSON(http.StatusOK, session)
}

func (r *RestAPI) logout(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	if err := r.services.Auth.Logout(c.Request.Context(), claims, presentedRefreshToken(c)); err != nil {
		r.handleServiceError(c, err)
		return
	}
	r.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (r *RestAPI) me(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	user, err := r.services.Auth.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (r *RestAPI) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	session, err := r.services.Auth.ChangePassword(c.Request.Context(),
		claims.UserID, req.CurrentPassword, req.NewPassword, c.Request.UserAgent())
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	// retire the access token that made this request
	if err := r.services.Auth.Logout(c.Request.Context(), claims, ""); err != nil {
		r.handleServiceError(c, err)
		return
	}
	r.setSessionCookies(c, session)
	c.JSON(http.StatusOK, session)
}

func (r *RestAPI) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	if err := r.services.Auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset link has been sent"})
}

func (r *RestAPI) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	if err := r.services.Auth.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
