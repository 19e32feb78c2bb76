package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"library-backend/pkg/models"
)

func TestRegister(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMultipartBody(c, "POST", "/api/auth/register", map[string]string{
		"name":       "Alice Student",
		"email":      "alice@test.local",
		"password":   "password123",
		"studentId":  "S-2001",
		"department": "CS",
	}, "idPicture", "id.png")

	register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	response := decodeBody(w)
	assert.NotEmpty(t, response["token"])
	assert.NotEmpty(t, response["refreshToken"])

	user := response["user"].(map[string]interface{})
	assert.Equal(t, "alice@test.local", user["email"])
	assert.Equal(t, models.RoleStudent, user["role"])

	var stored models.User
	assert.NoError(t, db.Where("email = ?", "alice@test.local").First(&stored).Error)
	assert.NotEqual(t, "password123", stored.Password)
	assert.NotEmpty(t, stored.IDPictureURL)
}

func TestRegisterMissingIDPicture(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMultipartBody(c, "POST", "/api/auth/register", map[string]string{
		"name":     "Alice Student",
		"email":    "alice@test.local",
		"password": "password123",
	}, "", "")

	register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMultipartBody(c, "POST", "/api/auth/register", map[string]string{
		"email": "alice@test.local",
	}, "idPicture", "id.png")

	register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	setupTest(t)
	existing := createTestUser(t, models.RoleStudent)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setMultipartBody(c, "POST", "/api/auth/register", map[string]string{
		"name":     "Other Student",
		"email":    existing.Email,
		"password": "password123",
	}, "idPicture", "id.png")

	register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin(t *testing.T) {
	setupTest(t)
	user := createTestUser(t, models.RoleStudent)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setJSONBody(c, "POST", "/api/auth/login", gin.H{
		"email":    user.Email,
		"password": "password123",
	})

	login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(w)
	assert.NotEmpty(t, response["token"])

	claims, err := tokens.ParseAccessToken(response["token"].(string))
	assert.NoError(t, err)
	assert.Equal(t, user.UserUid, claims.UserUid)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	setupTest(t)
	user := createTestUser(t, models.RoleStudent)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setJSONBody(c, "POST", "/api/auth/login", gin.H{
		"email":    user.Email,
		"password": "wrong",
	})

	login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", decodeBody(w)["error"])
}

func TestLoginUnknownEmail(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setJSONBody(c, "POST", "/api/auth/login", gin.H{
		"email":    "nobody@test.local",
		"password": "password123",
	})

	login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// The same generic message as a wrong password.
	assert.Equal(t, "invalid credentials", decodeBody(w)["error"])
}

func TestLoginAdminRejectsStudent(t *testing.T) {
	setupTest(t)
	user := createTestUser(t, models.RoleStudent)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setJSONBody(c, "POST", "/api/auth/login/admin", gin.H{
		"email":    user.Email,
		"password": "password123",
	})

	loginAdmin(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginAdmin(t *testing.T) {
	setupTest(t)
	admin := createTestUser(t, models.RoleAdmin)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setJSONBody(c, "POST", "/api/auth/login/admin", gin.H{
		"email":    admin.Email,
		"password": "password123",
	})

	loginAdmin(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshToken(t *testing.T) {
	setupTest(t)
	user := createTestUser(t, models.RoleStudent)

	refresh, err := tokens.IssueRefreshToken(user.UserUid)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setJSONBody(c, "POST", "/api/auth/refresh-token", gin.H{"refreshToken": refresh})

	refreshToken(c)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(w)
	claims, err := tokens.ParseAccessToken(response["token"].(string))
	assert.NoError(t, err)
	assert.Equal(t, user.UserUid, claims.UserUid)
}

func TestRefreshTokenInvalid(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setJSONBody(c, "POST", "/api/auth/refresh-token", gin.H{"refreshToken": "garbage"})

	refreshToken(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
