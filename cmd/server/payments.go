package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library-backend/pkg/models"
	"library-backend/pkg/notifier"
)

func paymentResponse(p *models.Payment) gin.H {
	return gin.H{
		"id":         p.PaymentUid,
		"screenshot": p.ScreenshotURL,
		"reference":  p.Reference,
		"status":     p.Status,
		"createdAt":  p.CreatedAt,
	}
}

// currentMonthRange returns [first of this month, first of next month).
func currentMonthRange() (time.Time, time.Time) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// isCurrentlyPaid reports whether an approved payment exists for the user
// in the current calendar month.
func isCurrentlyPaid(userID uint) bool {
	start, end := currentMonthRange()
	var count int64
	db.Model(&models.Payment{}).
		Where("user_id = ? AND status = ?", userID, models.PaymentStatusApproved).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count)
	return count > 0
}

func submitPayment(c *gin.Context) {
	user := currentUser(c)

	start, end := currentMonthRange()
	var approvedCount int64
	db.Model(&models.Payment{}).
		Where("user_id = ? AND status = ?", user.ID, models.PaymentStatusApproved).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&approvedCount)
	if approvedCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "you already have an approved payment for this month"})
		return
	}

	if !cfg.AllowDuplicatePendingPayments {
		var anyCount int64
		db.Model(&models.Payment{}).
			Where("user_id = ?", user.ID).
			Where("created_at >= ? AND created_at < ?", start, end).
			Count(&anyCount)
		if anyCount > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "a payment for this month has already been submitted"})
			return
		}
	}

	screenshot, err := saveUpload(c, "screenshot", "payments")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment screenshot is required"})
		return
	}

	payment := models.Payment{
		PaymentUid:    uuid.New().String(),
		UserID:        user.ID,
		ScreenshotURL: screenshot,
		Reference:     strings.TrimSpace(c.PostForm("reference")),
		Status:        models.PaymentStatusPending,
	}
	if err := db.Create(&payment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit payment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "payment submitted successfully",
		"payment": paymentResponse(&payment),
	})
}

func getPayments(c *gin.Context) {
	var payments []models.Payment
	err := db.Preload("User").Order("created_at DESC").Find(&payments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payments"})
		return
	}

	items := make([]gin.H, len(payments))
	for i := range payments {
		item := paymentResponse(&payments[i])
		item["user"] = gin.H{
			"id":    payments[i].User.UserUid,
			"name":  payments[i].User.Name,
			"email": payments[i].User.Email,
		}
		items[i] = item
	}
	c.JSON(http.StatusOK, items)
}

func setPaymentStatus(c *gin.Context) {
	var request struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	if request.Status != models.PaymentStatusApproved && request.Status != models.PaymentStatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be Approved or Rejected"})
		return
	}

	var payment models.Payment
	if err := db.Preload("User").Where("payment_uid = ?", c.Param("paymentId")).First(&payment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}

	payment.Status = request.Status
	if err := db.Save(&payment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update payment"})
		return
	}

	notifications.Dispatch(notifier.PaymentStatusEmail(payment.User.Email, payment.User.Name, payment.Status))

	c.JSON(http.StatusOK, gin.H{
		"message": "payment " + payment.Status,
		"payment": paymentResponse(&payment),
	})
}

func getMyPayments(c *gin.Context) {
	user := currentUser(c)

	var payments []models.Payment
	err := db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&payments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payments"})
		return
	}

	items := make([]gin.H, len(payments))
	for i := range payments {
		items[i] = paymentResponse(&payments[i])
	}
	c.JSON(http.StatusOK, items)
}

func isPaid(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{"isPaid": isCurrentlyPaid(user.ID)})
}
