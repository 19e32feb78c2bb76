package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"library-backend/pkg/models"
	"library-backend/pkg/notifier"
)

func sanitizeUser(u *models.User) gin.H {
	return gin.H{
		"id":         u.UserUid,
		"name":       u.Name,
		"email":      u.Email,
		"studentId":  u.StudentID,
		"department": u.Department,
		"idPicture":  u.IDPictureURL,
		"role":       u.Role,
	}
}

func issueTokenPair(u *models.User) (string, string, error) {
	accessToken, err := tokens.IssueAccessToken(u.UserUid, u.Role)
	if err != nil {
		return "", "", err
	}
	refresh, err := tokens.IssueRefreshToken(u.UserUid)
	if err != nil {
		return "", "", err
	}
	return accessToken, refresh, nil
}

func register(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	studentID := strings.TrimSpace(c.PostForm("studentId"))
	department := strings.TrimSpace(c.PostForm("department"))

	if name == "" || email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and password are required"})
		return
	}

	idPicture, err := saveUpload(c, "idPicture", "ids")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID picture is required"})
		return
	}

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email is already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	user := models.User{
		UserUid:      uuid.New().String(),
		Name:         name,
		Email:        email,
		Password:     string(hash),
		StudentID:    studentID,
		Department:   department,
		Role:         models.RoleStudent,
		IDPictureURL: idPicture,
	}
	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email is already registered"})
		return
	}

	accessToken, refresh, err := issueTokenPair(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}

	notifications.Dispatch(notifier.WelcomeEmail(user.Email, user.Name))

	c.JSON(http.StatusCreated, gin.H{
		"user":         sanitizeUser(&user),
		"token":        accessToken,
		"refreshToken": refresh,
	})
}

// authenticate never reveals whether the email or the password was wrong.
func authenticate(email, password string) (*models.User, bool) {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, false
	}
	return &user, true
}

func login(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, ok := authenticate(request.Email, request.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	accessToken, refresh, err := issueTokenPair(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         sanitizeUser(user),
		"token":        accessToken,
		"refreshToken": refresh,
	})
}

func loginAdmin(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, ok := authenticate(request.Email, request.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied, not an administrator"})
		return
	}

	accessToken, refresh, err := issueTokenPair(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         sanitizeUser(user),
		"token":        accessToken,
		"refreshToken": refresh,
	})
}

func refreshToken(c *gin.Context) {
	var request struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken is required"})
		return
	}

	claims, err := tokens.ParseRefreshToken(request.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	var user models.User
	if err := db.Where("user_uid = ?", claims.UserUid).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	accessToken, err := tokens.IssueAccessToken(user.UserUid, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": accessToken})
}
