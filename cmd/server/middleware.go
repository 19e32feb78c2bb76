package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"library-backend/pkg/models"
)

type action string

const (
	actionManageCatalog  action = "catalog:manage"
	actionBorrow         action = "borrow:create"
	actionFinalizeReturn action = "borrow:finalize"
	actionSubmitPayment  action = "payment:submit"
	actionReviewPayments action = "payment:review"
	actionAdministrate   action = "admin:all"
)

// permissions is the single authority for role checks. Ownership checks go
// through owns().
var permissions = map[action]map[string]bool{
	actionManageCatalog:  {models.RoleAdmin: true},
	actionBorrow:         {models.RoleStudent: true},
	actionFinalizeReturn: {models.RoleAdmin: true},
	actionSubmitPayment:  {models.RoleStudent: true},
	actionReviewPayments: {models.RoleAdmin: true},
	actionAdministrate:   {models.RoleAdmin: true},
}

func allowed(role string, a action) bool {
	return permissions[a][role]
}

// owns reports whether the actor may touch a resource belonging to ownerID.
// Admins pass every ownership check.
func owns(u *models.User, ownerID uint) bool {
	return u.ID == ownerID || u.Role == models.RoleAdmin
}

// authRequired verifies the bearer access token and loads the account it
// belongs to into the request context.
func authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		claims, err := tokens.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		var user models.User
		if err := db.Where("user_uid = ?", claims.UserUid).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
			return
		}

		c.Set("user", &user)
		c.Next()
	}
}

func requirePermission(a action) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !allowed(user.Role, a) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	value, ok := c.Get("user")
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
