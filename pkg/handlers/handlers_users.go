package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dpm2/maintenance-api/pkg/auth"
	"github.com/dpm2/maintenance-api/pkg/database"
	"github.com/dpm2/maintenance-api/pkg/models"
)

const generatedPasswordLength = 10

// Login exchanges email and password for a session token
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter email and password"})
		return
	}

	user, token, err := h.Auth.Login(c.Request.Context(), h.Store, req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		h.fail(c, err, "Could not sign in")
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer", "user": user})
}

// Me returns the signed-in user
func (h *Handler) Me(c *gin.Context) {
	user, err := h.Store.GetUser(c.Request.Context(), claimsOf(c).UserID)
	if err != nil {
		h.fail(c, err, "Could not fetch user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// CreateUser registers an account with a generated password and emails it
func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Email       string      `json:"email" binding:"required,email"`
		Role        models.Role `json:"role" binding:"required,role"`
		FirstName   string      `json:"first_name"`
		LastName    string      `json:"last_name"`
		PhoneNumber string      `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == models.RoleAdmin && claimsOf(c).Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can create admins"})
		return
	}

	password, err := auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		h.fail(c, err, "Could not generate password")
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		h.fail(c, err, "Could not hash password")
		return
	}

	user := &database.User{
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
	}
	if err := h.Store.CreateUser(c.Request.Context(), user); err != nil {
		h.fail(c, err, "User creation failed")
		return
	}

	emailed := true
	if err := h.Mailer.SendCredentials(c.Request.Context(), user.Email, password); err != nil {
		h.Log.Warn().Err(err).Uint("user_id", user.ID).Msg("credentials email failed")
		emailed = false
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "User created successfully.",
		"user":     user,
		"password": password,
		"emailed":  emailed,
	})
}

// GetUser returns a user profile
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := h.Store.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to fetch user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type userUpdate struct {
	Email       string      `json:"email" binding:"omitempty,email"`
	Role        models.Role `json:"role" binding:"omitempty,role"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	PhoneNumber string      `json:"phone_number"`
}

// UpdateUser edits profile fields
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req userUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req == (userUpdate{}) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No update fields provided"})
		return
	}

	user, err := h.Store.UpdateUser(c.Request.Context(), id, database.User{
		Email:       strings.ToLower(req.Email),
		Role:        req.Role,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		h.fail(c, err, "Profile update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User profile updated successfully", "user": user})
}

// DeleteUser removes an account
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if claimsOf(c).UserID == id {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete your own account"})
		return
	}
	if err := h.Store.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, err, "User deletion failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// ResetPassword replaces a user's password with a generated one and emails it
func (h *Handler) ResetPassword(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user, err := h.Store.GetUser(ctx, id)
	if err != nil {
		h.fail(c, err, "Password reset failed")
		return
	}

	password, err := auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		h.fail(c, err, "Could not generate password")
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		h.fail(c, err, "Could not hash password")
		return
	}
	if err := h.Store.SetPasswordHash(ctx, id, hash); err != nil {
		h.fail(c, err, "Password reset failed")
		return
	}

	emailed := true
	if err := h.Mailer.SendCredentials(ctx, user.Email, password); err != nil {
		h.Log.Warn().Err(err).Uint("user_id", id).Msg("credentials email failed")
		emailed = false
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully.", "password": password, "emailed": emailed})
}

// ChangePassword lets a signed-in user set a new password
func (h *Handler) ChangePassword(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	claims := claimsOf(c)
	if claims.UserID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "Can only change your own password"})
		return
	}
	var req struct {
		Current string `json:"current_password" binding:"required"`
		New     string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Store.GetUser(ctx, id)
	if err != nil {
		h.fail(c, err, "Password change failed")
		return
	}
	if !auth.CheckPasswordHash(req.Current, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}
	hash, err := auth.HashPassword(req.New)
	if err != nil {
		h.fail(c, err, "Could not hash password")
		return
	}
	if err := h.Store.SetPasswordHash(ctx, id, hash); err != nil {
		h.fail(c, err, "Password change failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
