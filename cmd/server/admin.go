package main

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-backend/pkg/models"
)

type copiesAggregate struct {
	AvailableCopies      int64
	TotalCopies          int64
	AvailableUniqueBooks int64
}

func aggregateCopies(tx *gorm.DB) (copiesAggregate, error) {
	var agg copiesAggregate
	err := tx.Model(&models.Book{}).
		Select("COALESCE(SUM(available_copies), 0) as available_copies, " +
			"COALESCE(SUM(total_copies), 0) as total_copies, " +
			"COALESCE(SUM(CASE WHEN available_copies > 0 THEN 1 ELSE 0 END), 0) as available_unique_books").
		Scan(&agg).Error
	return agg, err
}

// adminStats gathers independent counts concurrently before combining
// them; none of the queries depends on another.
func adminStats(c *gin.Context) {
	var (
		totalUsers      int64
		totalBooks      int64
		pendingPayments int64
		activeBorrows   int64
		overdueBorrows  int64
		copies          copiesAggregate
	)
	errs := make([]error, 6)

	var wg sync.WaitGroup
	wg.Add(6)
	go func() {
		defer wg.Done()
		errs[0] = db.Model(&models.User{}).Count(&totalUsers).Error
	}()
	go func() {
		defer wg.Done()
		errs[1] = db.Model(&models.Book{}).Count(&totalBooks).Error
	}()
	go func() {
		defer wg.Done()
		errs[2] = db.Model(&models.Payment{}).Where("status = ?", models.PaymentStatusPending).Count(&pendingPayments).Error
	}()
	go func() {
		defer wg.Done()
		errs[3] = db.Model(&models.BorrowRecord{}).Where("status = ?", models.BorrowStatusActive).Count(&activeBorrows).Error
	}()
	go func() {
		defer wg.Done()
		errs[4] = db.Model(&models.BorrowRecord{}).Where("status = ?", models.BorrowStatusOverdue).Count(&overdueBorrows).Error
	}()
	go func() {
		defer wg.Done()
		copies, errs[5] = aggregateCopies(db)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stats"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"totalUsers":      totalUsers,
		"totalBooks":      totalBooks,
		"availableBooks":  copies.AvailableUniqueBooks,
		"availableCopies": copies.AvailableCopies,
		"pendingPayments": pendingPayments,
		"activeBorrows":   activeBorrows,
		"overdueBorrows":  overdueBorrows,
	})
}

func adminUsers(c *gin.Context) {
	var users []models.User
	if err := db.Order("created_at").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch users"})
		return
	}

	var borrowAgg []struct {
		UserID          uint
		TotalBorrowed   int64
		CurrentBorrowed int64
	}
	err := db.Model(&models.BorrowRecord{}).
		Select("user_id, COUNT(*) as total_borrowed, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) as current_borrowed", models.BorrowStatusActive).
		Group("user_id").
		Scan(&borrowAgg).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch users"})
		return
	}
	borrowMap := make(map[uint]struct{ total, current int64 }, len(borrowAgg))
	for _, agg := range borrowAgg {
		borrowMap[agg.UserID] = struct{ total, current int64 }{agg.TotalBorrowed, agg.CurrentBorrowed}
	}

	start, end := currentMonthRange()
	var payments []models.Payment
	err = db.Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch users"})
		return
	}
	paymentMap := make(map[uint]string)
	for _, p := range payments {
		if _, seen := paymentMap[p.UserID]; !seen {
			paymentMap[p.UserID] = p.Status
		}
	}

	items := make([]gin.H, len(users))
	for i := range users {
		borrows := borrowMap[users[i].ID]
		status, ok := paymentMap[users[i].ID]
		if !ok {
			status = models.PaymentStatusPending
		}
		items[i] = gin.H{
			"id":              users[i].UserUid,
			"name":            users[i].Name,
			"email":           users[i].Email,
			"studentId":       users[i].StudentID,
			"department":      users[i].Department,
			"role":            users[i].Role,
			"currentBorrowed": borrows.current,
			"totalBorrowed":   borrows.total,
			"status":          status,
		}
	}
	c.JSON(http.StatusOK, items)
}

// setUserPaymentStatus upserts the user's current-month payment status.
func setUserPaymentStatus(c *gin.Context) {
	var request struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	switch request.Status {
	case models.PaymentStatusApproved, models.PaymentStatusRejected, models.PaymentStatusPending:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be Approved, Rejected or Pending"})
		return
	}

	var user models.User
	if err := db.Where("user_uid = ?", c.Param("userId")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	start, end := currentMonthRange()
	var payment models.Payment
	err := db.Where("user_id = ?", user.ID).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		payment = models.Payment{
			PaymentUid: uuid.New().String(),
			UserID:     user.ID,
			Status:     request.Status,
		}
		if err := db.Create(&payment).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user status"})
			return
		}
	} else {
		payment.Status = request.Status
		if err := db.Save(&payment).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user status"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "user status updated to " + request.Status,
		"status":  request.Status,
	})
}

func deleteUser(c *gin.Context) {
	var user models.User
	if err := db.Where("user_uid = ?", c.Param("userId")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var activeCount int64
	db.Model(&models.BorrowRecord{}).
		Where("user_id = ? AND status = ?", user.ID, models.BorrowStatusActive).
		Count(&activeCount)
	if activeCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot delete user with active book borrows"})
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var reviewedBookIDs []uint
		if err := tx.Model(&models.Review{}).
			Where("user_id = ?", user.ID).
			Distinct().
			Pluck("book_id", &reviewedBookIDs).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.BorrowRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		for _, bookID := range reviewedBookIDs {
			if err := recomputeAverageRating(tx, bookID); err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted successfully"})
}

func mySummary(c *gin.Context) {
	user := currentUser(c)

	var activeCount int64
	db.Model(&models.BorrowRecord{}).
		Where("user_id = ? AND status = ?", user.ID, models.BorrowStatusActive).
		Count(&activeCount)

	copies, err := aggregateCopies(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch summary"})
		return
	}

	start, end := currentMonthRange()
	status := models.PaymentStatusPending
	var payment models.Payment
	err = db.Where("user_id = ?", user.ID).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at DESC").
		First(&payment).Error
	if err == nil {
		status = payment.Status
	}

	var borrows []models.BorrowRecord
	err = db.Preload("Book").
		Where("user_id = ? AND status = ?", user.ID, models.BorrowStatusActive).
		Find(&borrows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch summary"})
		return
	}

	currentBorrows := make([]gin.H, len(borrows))
	for i := range borrows {
		currentBorrows[i] = gin.H{
			"id": borrows[i].BorrowUid,
			"book": gin.H{
				"id":     borrows[i].Book.BookUid,
				"title":  borrows[i].Book.Title,
				"author": borrows[i].Book.Author,
			},
			"borrowDate": borrows[i].BorrowDate.Format("2006-01-02"),
			"dueDate":    borrows[i].DueDate.Format("2006-01-02"),
			"status":     borrows[i].Status,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"booksBorrowed":   activeCount,
		"availableBooks":  copies.AvailableUniqueBooks,
		"availableCopies": copies.AvailableCopies,
		"payment": gin.H{
			"status": status,
			"isPaid": status == models.PaymentStatusApproved,
		},
		"currentBorrows": currentBorrows,
	})
}
