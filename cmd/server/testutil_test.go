package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"library-backend/pkg/config"
	"library-backend/pkg/database"
	"library-backend/pkg/models"
	"library-backend/pkg/notifier"
	"library-backend/pkg/token"
)

func setupTestDB() *gorm.DB {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect test database")
	}
	// A second connection to :memory: would see an empty database.
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(testDB); err != nil {
		panic("failed to migrate test database")
	}
	return testDB
}

func setupTest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()
	cfg = &config.Config{
		JWTSecret:                     "test-secret",
		AccessTokenTTL:                7 * 24 * time.Hour,
		RefreshTokenTTL:               30 * 24 * time.Hour,
		UploadDir:                     t.TempDir(),
		BorrowLimit:                   3,
		LoanPeriod:                    14 * 24 * time.Hour,
		AllowDuplicatePendingPayments: true,
	}
	tokens = token.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	notifications = notifier.NewDispatcher(notifier.LogSender{}, 10)
}

func createTestUser(t *testing.T, role string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := models.User{
		UserUid:    uuid.New().String(),
		Name:       "Test " + role,
		Email:      uuid.New().String() + "@test.local",
		Password:   string(hash),
		StudentID:  "S-1001",
		Department: "CS",
		Role:       role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return &user
}

func createTestBook(t *testing.T, copies int) *models.Book {
	book := models.Book{
		BookUid:         uuid.New().String(),
		Title:           "Test Book",
		Author:          "Test Author",
		ISBN:            uuid.New().String(),
		Category:        "Fiction",
		PublicationYear: 2020,
		Language:        "English",
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	if err := db.Create(&book).Error; err != nil {
		t.Fatalf("failed to create test book: %v", err)
	}
	return &book
}

func approvePaymentFor(t *testing.T, user *models.User) *models.Payment {
	payment := models.Payment{
		PaymentUid:    uuid.New().String(),
		UserID:        user.ID,
		ScreenshotURL: "/uploads/payments/test.png",
		Status:        models.PaymentStatusApproved,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("failed to create test payment: %v", err)
	}
	return &payment
}

func createBorrow(t *testing.T, user *models.User, book *models.Book, status string, dueDate time.Time) *models.BorrowRecord {
	record := models.BorrowRecord{
		BorrowUid:  uuid.New().String(),
		UserID:     user.ID,
		BookID:     book.ID,
		Status:     status,
		BorrowDate: time.Now(),
		DueDate:    dueDate,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("failed to create test borrow record: %v", err)
	}
	return &record
}

// newTestContext prepares a gin context the way the auth middleware would
// have left it.
func newTestContext(w *httptest.ResponseRecorder, user *models.User) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	if user != nil {
		c.Set("user", user)
	}
	return c
}

func setJSONBody(c *gin.Context, method, target string, payload interface{}) {
	body, _ := json.Marshal(payload)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
}

// multipartBody builds a multipart form with the given fields and, when
// fileField is non-empty, one small file part.
func multipartBody(fields map[string]string, fileField, fileName string) (*bytes.Buffer, string) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	if fileField != "" {
		part, _ := writer.CreateFormFile(fileField, fileName)
		part.Write([]byte("fake image bytes"))
	}
	writer.Close()
	return buf, writer.FormDataContentType()
}

func setMultipartBody(c *gin.Context, method, target string, fields map[string]string, fileField, fileName string) {
	body, contentType := multipartBody(fields, fileField, fileName)
	c.Request = httptest.NewRequest(method, target, body)
	c.Request.Header.Set("Content-Type", contentType)
}

func decodeBody(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	return response
}

func decodeList(w *httptest.ResponseRecorder) []map[string]interface{} {
	var response []map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	return response
}
