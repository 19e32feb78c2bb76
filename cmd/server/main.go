package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"library-backend/pkg/config"
	"library-backend/pkg/database"
	"library-backend/pkg/models"
	"library-backend/pkg/notifier"
	"library-backend/pkg/token"
)

var (
	db            *gorm.DB
	cfg           *config.Config
	tokens        *token.Manager
	notifications *notifier.Dispatcher
)

func main() {
	log.Println("Starting library server...")

	cfg = config.Load()
	db = database.InitDB(cfg)
	tokens = token.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	notifications = notifier.NewDispatcher(notifier.NewSender(cfg), 100)
	notifications.Start()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	seedAdminUser()

	server := setupRouter()

	log.Printf("Library server starting on :%s", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func setupRouter() *gin.Engine {
	server := gin.Default()

	server.GET("/manage/health", healthCheck)
	server.Static("/uploads", cfg.UploadDir)

	api := server.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", register)
	auth.POST("/login", login)
	auth.POST("/login/admin", loginAdmin)
	auth.POST("/refresh-token", refreshToken)

	books := api.Group("/books", authRequired())
	books.GET("", getBooks)
	books.GET("/:bookId", getBook)
	books.POST("", requirePermission(actionManageCatalog), addBook)
	books.PUT("/:bookId", requirePermission(actionManageCatalog), updateBook)
	books.DELETE("/:bookId", requirePermission(actionManageCatalog), deleteBook)

	borrow := api.Group("/borrow", authRequired())
	borrow.POST("/:bookId", requirePermission(actionBorrow), borrowBook)
	borrow.GET("", requirePermission(actionAdministrate), getBorrows)
	borrow.GET("/myBorrows", getMyBorrows)
	borrow.PUT("/return/:borrowId", requestReturn)
	borrow.PUT("/return/:borrowId/approve", requirePermission(actionFinalizeReturn), approveReturn)
	borrow.PUT("/return/:borrowId/decline", requirePermission(actionFinalizeReturn), declineReturn)

	payments := api.Group("/payments", authRequired())
	payments.POST("", requirePermission(actionSubmitPayment), submitPayment)
	payments.GET("", requirePermission(actionReviewPayments), getPayments)
	payments.PUT("/:paymentId", requirePermission(actionReviewPayments), setPaymentStatus)
	payments.GET("/myPayments", getMyPayments)
	payments.GET("/isPaid", isPaid)

	reviews := api.Group("/reviews", authRequired())
	reviews.POST("", upsertReview)
	reviews.GET("/book/:bookId", getBookReviews)
	reviews.GET("/book/:bookId/user", getMyReviewForBook)
	reviews.GET("/book/:bookId/stats", getBookReviewStats)
	reviews.GET("/user", getUserReviews)
	reviews.PUT("/:reviewId", updateReview)
	reviews.DELETE("/:reviewId", deleteReview)

	admin := api.Group("/admin", authRequired(), requirePermission(actionAdministrate))
	admin.GET("/stats", adminStats)
	admin.GET("/users", adminUsers)
	admin.PATCH("/users/:userId/status", setUserPaymentStatus)
	admin.DELETE("/users/:userId", deleteUser)

	api.GET("/user/me/summary", authRequired(), mySummary)

	return server
}

// seedAdminUser makes sure at least one admin account exists so the
// approval flows are reachable on a fresh database.
func seedAdminUser() {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@library.local"
	}

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin1234"
		log.Println("ADMIN_PASSWORD not set, seeding admin with default password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash admin password: %v", err)
		return
	}

	admin := models.User{
		UserUid:    uuid.New().String(),
		Name:       "Library Admin",
		Email:      email,
		Password:   string(hash),
		Department: "Library",
		Role:       models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("Failed to seed admin user: %v", err)
		return
	}
	log.Printf("Seeded admin user: %s", email)
}

// saveUpload stores a multipart file under the upload directory and
// returns the public path.
func saveUpload(c *gin.Context, field, subdir string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", err
	}
	name := uuid.New().String() + filepath.Ext(file.Filename)
	dst := filepath.Join(cfg.UploadDir, subdir, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", err
	}
	return "/uploads/" + subdir + "/" + name, nil
}

func healthCheck(c *gin.Context) {
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database connection failed",
			"error":   err.Error(),
		})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"details": "Database connection is active",
	})
}
