package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-backend/pkg/models"
	"library-backend/pkg/notifier"
)

func borrowResponse(r *models.BorrowRecord) gin.H {
	return gin.H{
		"id":         r.BorrowUid,
		"status":     r.Status,
		"borrowDate": r.BorrowDate.Format("2006-01-02"),
		"dueDate":    r.DueDate.Format("2006-01-02"),
	}
}

func enrichedBorrowResponse(r *models.BorrowRecord) gin.H {
	resp := borrowResponse(r)
	resp["book"] = gin.H{
		"id":     r.Book.BookUid,
		"title":  r.Book.Title,
		"author": r.Book.Author,
		"image":  r.Book.ImageURL,
	}
	resp["user"] = gin.H{
		"id":        r.User.UserUid,
		"name":      r.User.Name,
		"email":     r.User.Email,
		"studentId": r.User.StudentID,
	}
	return resp
}

func borrowBook(c *gin.Context) {
	user := currentUser(c)

	if !isCurrentlyPaid(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "an approved membership payment for this month is required"})
		return
	}

	var activeCount int64
	err := db.Model(&models.BorrowRecord{}).
		Where("user_id = ? AND status = ?", user.ID, models.BorrowStatusActive).
		Count(&activeCount).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check borrow limit"})
		return
	}
	if activeCount >= int64(cfg.BorrowLimit) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "borrow limit reached"})
		return
	}

	book, err := findBookByUid(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	borrowDate := time.Now()
	record := models.BorrowRecord{
		BorrowUid:  uuid.New().String(),
		UserID:     user.ID,
		BookID:     book.ID,
		Status:     models.BorrowStatusActive,
		BorrowDate: borrowDate,
		DueDate:    borrowDate.Add(cfg.LoanPeriod),
	}

	// The copy decrement and the record creation stand or fall together.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := adjustAvailability(tx, book.ID, -1); err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err == errNoAvailableCopies {
		c.JSON(http.StatusConflict, gin.H{"error": "no copies available"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to borrow book"})
		return
	}

	c.JSON(http.StatusCreated, borrowResponse(&record))
}

func requestReturn(c *gin.Context) {
	user := currentUser(c)

	var record models.BorrowRecord
	if err := db.Preload("Book").Where("borrow_uid = ?", c.Param("borrowId")).First(&record).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "borrow record not found"})
		return
	}
	if !owns(user, record.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to request return for this record"})
		return
	}
	switch record.Status {
	case models.BorrowStatusReturned, models.BorrowStatusOverdue:
		c.JSON(http.StatusBadRequest, gin.H{"error": "this borrow is already returned"})
		return
	case models.BorrowStatusPending:
		c.JSON(http.StatusBadRequest, gin.H{"error": "return already requested and pending approval"})
		return
	}

	record.Status = models.BorrowStatusPending
	if err := db.Save(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to request return"})
		return
	}

	notifications.Dispatch(notifier.ReturnRequestedEmail(user.Email, user.Name, record.Book.Title))

	c.JSON(http.StatusOK, gin.H{
		"message": "return request submitted and pending admin approval",
		"borrow":  borrowResponse(&record),
	})
}

func approveReturn(c *gin.Context) {
	var record models.BorrowRecord
	if err := db.Preload("Book").Preload("User").Where("borrow_uid = ?", c.Param("borrowId")).First(&record).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "borrow record not found"})
		return
	}
	if record.Status != models.BorrowStatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "borrow is not pending return approval"})
		return
	}

	overdue := time.Now().After(record.DueDate)
	if overdue {
		record.Status = models.BorrowStatusOverdue
	} else {
		record.Status = models.BorrowStatusReturned
	}

	// The copy increment and the status change stand or fall together.
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := adjustAvailability(tx, record.BookID, 1); err != nil {
			return err
		}
		return tx.Save(&record).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve return"})
		return
	}

	notifications.Dispatch(notifier.ReturnApprovedEmail(record.User.Email, record.User.Name, record.Book.Title, overdue))

	c.JSON(http.StatusOK, gin.H{
		"message": "return approved",
		"borrow":  borrowResponse(&record),
	})
}

func declineReturn(c *gin.Context) {
	var record models.BorrowRecord
	if err := db.Preload("Book").Preload("User").Where("borrow_uid = ?", c.Param("borrowId")).First(&record).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "borrow record not found"})
		return
	}
	if record.Status != models.BorrowStatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "borrow is not pending return approval"})
		return
	}

	record.Status = models.BorrowStatusActive
	if err := db.Save(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decline return"})
		return
	}

	notifications.Dispatch(notifier.ReturnDeclinedEmail(record.User.Email, record.User.Name, record.Book.Title))

	c.JSON(http.StatusOK, gin.H{
		"message": "return request declined",
		"borrow":  borrowResponse(&record),
	})
}

func getBorrows(c *gin.Context) {
	var records []models.BorrowRecord
	err := db.Preload("Book").Preload("User").Order("created_at DESC").Find(&records).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch borrow records"})
		return
	}

	items := make([]gin.H, len(records))
	for i := range records {
		items[i] = enrichedBorrowResponse(&records[i])
	}
	c.JSON(http.StatusOK, items)
}

func getMyBorrows(c *gin.Context) {
	user := currentUser(c)

	query := db.Preload("Book").Preload("User").Order("created_at DESC")
	if user.Role != models.RoleAdmin {
		query = query.Where("user_id = ?", user.ID)
	}

	var records []models.BorrowRecord
	if err := query.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch borrow records"})
		return
	}

	items := make([]gin.H, len(records))
	for i := range records {
		items[i] = enrichedBorrowResponse(&records[i])
	}
	c.JSON(http.StatusOK, items)
}
