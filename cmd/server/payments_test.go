package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"library-backend/pkg/models"
)

func TestSubmitPayment(t *testing.T) {
	setupTest(t)
	student := createTestUser(t, models.RoleStudent)

	w := httptest.NewRecorder()
	c := newTestContext(w, student)
	setMultipartBody(c, "POST", "/api/payments", map[string]string{
		"reference": "TXN-123",
	}, "screenshot", "receipt.png")

	submitPayment(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var payment models.Payment
	assert.NoError(t, db.Where("user_id = ?", student.ID).First(&payment).Error)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, "TXN-123", payment.Reference)
	assert.NotEmpty(t, payment.ScreenshotURL)
}

func TestSubmitPaymentMissingScreenshot(t *testing.T) {
	setupTest(t)
	student := createTestUser(t, models.RoleStudent)

	w := httptest.NewRecorder()
	c := newTestContext(w, student)
	setMultipartBody(c, "POST", "/api/payments", map[string]string{
		"reference": "TXN-123",
	}, "", "")

	submitPayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitPaymentAlreadyApprovedThisMonth(t *testing.T) {
	setupTest(t)
	student := createTestUser(t, models.RoleStudent)
	approvePaymentFor(t, student)

	w := httptest.NewRecorder()
	c := newTestContext(w, student)
	setMultipartBody(c, "POST", "/api/payments", map[string]string{
		"reference": "TXN-456",
	}, "screenshot", "receipt.png")

	submitPayment(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitPaymentDuplicatePendingAllowedByDefault(t *testing.T) {
	setupTest(t)
	student := createTestUser(t, models.RoleStudent)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		c := newTestContext(w, student)
		setMultipartBody(c, "POST", "/api/payments", map[string]string{
			"reference": "TXN",
		}, "screenshot", "receipt.png")
		submitPayment(c)
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	var count int64
	db.Model(&models.Payment{}).Where("user_id = ?", student.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestSubmitPaymentDuplicatePendingForbiddenByPolicy(t *testing.T) {
	setupTest(t)
	cfg.AllowDuplicatePendingPayments = false
	student := createTestUser(t, models.RoleStudent)

	w := httptest.NewRecorder()
	c := newTestContext(w, student)
	setMultipartBody(c, "POST", "/api/payments", map[string]string{"reference": "TXN"}, "screenshot", "receipt.png")
	submitPayment(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	c = newTestContext(w, student)
	setMultipartBody(c, "POST", "/api/payments", map[string]string{"reference": "TXN"}, "screenshot", "receipt.png")
	submitPayment(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSetPaymentStatus(t *testing.T) {
	setupTest(t)
	admin := createTestUser(t, models.RoleAdmin)
	student := createTestUser(t, models.RoleStudent)
	payment := models.Payment{
		PaymentUid:    "test-payment-uid",
		UserID:        student.ID,
		ScreenshotURL: "/uploads/payments/x.png",
		Status:        models.PaymentStatusPending,
	}
	db.Create(&payment)

	w := httptest.NewRecorder()
	c := newTestContext(w, admin)
	c.Params = gin.Params{{Key: "paymentId", Value: payment.PaymentUid}}
	setJSONBody(c, "PUT", "/api/payments/"+payment.PaymentUid, gin.H{"status": models.PaymentStatusApproved})

	setPaymentStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var updated models.Payment
	db.First(&updated, payment.ID)
	assert.Equal(t, models.PaymentStatusApproved, updated.Status)

	// Idempotent overwrite.
	w = httptest.NewRecorder()
	c = newTestContext(w, admin)
	c.Params = gin.Params{{Key: "paymentId", Value: payment.PaymentUid}}
	setJSONBody(c, "PUT", "/api/payments/"+payment.PaymentUid, gin.H{"status": models.PaymentStatusRejected})
	setPaymentStatus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	db.First(&updated, payment.ID)
	assert.Equal(t, models.PaymentStatusRejected, updated.Status)
}

func TestSetPaymentStatusInvalid(t *testing.T) {
	setupTest(t)
	admin := createTestUser(t, models.RoleAdmin)

	w := httptest.NewRecorder()
	c := newTestContext(w, admin)
	c.Params = gin.Params{{Key: "paymentId", Value: "whatever"}}
	setJSONBody(c, "PUT", "/api/payments/whatever", gin.H{"status": "Maybe"})

	setPaymentStatus(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIsPaid(t *testing.T) {
	setupTest(t)
	student := createTestUser(t, models.RoleStudent)

	w := httptest.NewRecorder()
	c := newTestContext(w, student)
	c.Request = httptest.NewRequest("GET", "/api/payments/isPaid", nil)
	isPaid(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(w)["isPaid"])

	approvePaymentFor(t, student)

	w = httptest.NewRecorder()
	c = newTestContext(w, student)
	c.Request = httptest.NewRequest("GET", "/api/payments/isPaid", nil)
	isPaid(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(w)["isPaid"])
}

func TestGetMyPayments(t *testing.T) {
	setupTest(t)
	student := createTestUser(t, models.RoleStudent)
	other := createTestUser(t, models.RoleStudent)
	approvePaymentFor(t, student)
	approvePaymentFor(t, other)

	w := httptest.NewRecorder()
	c := newTestContext(w, student)
	c.Request = httptest.NewRequest("GET", "/api/payments/myPayments", nil)

	getMyPayments(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, len(decodeList(w)))
}
