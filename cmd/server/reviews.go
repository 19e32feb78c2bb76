package main

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-backend/pkg/models"
)

var reviewSortColumns = map[string]string{
	"rating":    "rating",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func reviewResponse(r *models.Review) gin.H {
	resp := gin.H{
		"id":        r.ReviewUid,
		"rating":    r.Rating,
		"comment":   r.Comment,
		"isEdited":  r.IsEdited,
		"createdAt": r.CreatedAt,
	}
	if r.EditedAt != nil {
		resp["editedAt"] = r.EditedAt
	}
	return resp
}

// recomputeAverageRating persists the book's mean rating rounded to one
// decimal place, 0 when no reviews remain.
func recomputeAverageRating(tx *gorm.DB, bookID uint) error {
	var avg float64
	err := tx.Model(&models.Review{}).
		Where("book_id = ?", bookID).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	if err != nil {
		return err
	}
	rounded := math.Round(avg*10) / 10
	return tx.Model(&models.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("average_rating", rounded).Error
}

func upsertReview(c *gin.Context) {
	user := currentUser(c)

	var request struct {
		BookID  string `json:"bookId" binding:"required"`
		Rating  int    `json:"rating" binding:"required"`
		Comment string `json:"comment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bookId, rating and comment are required"})
		return
	}
	if request.Rating < 1 || request.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}

	book, err := findBookByUid(request.BookID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	comment := strings.TrimSpace(request.Comment)
	var review models.Review
	created := false
	err = db.Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("user_id = ? AND book_id = ?", user.ID, book.ID).First(&review).Error
		if findErr != nil {
			created = true
			review = models.Review{
				ReviewUid: uuid.New().String(),
				UserID:    user.ID,
				BookID:    book.ID,
				Rating:    request.Rating,
				Comment:   comment,
			}
			if err := tx.Create(&review).Error; err != nil {
				return err
			}
		} else {
			now := time.Now()
			review.Rating = request.Rating
			review.Comment = comment
			review.IsEdited = true
			review.EditedAt = &now
			if err := tx.Save(&review).Error; err != nil {
				return err
			}
		}
		return recomputeAverageRating(tx, book.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save review"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, reviewResponse(&review))
}

func getBookReviews(c *gin.Context) {
	book, err := findBookByUid(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}
	column, ok := reviewSortColumns[c.DefaultQuery("sortBy", "createdAt")]
	if !ok {
		column = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(c.DefaultQuery("order", "desc"), "asc") {
		order = "ASC"
	}

	query := db.Where("book_id = ?", book.ID)

	var total int64
	query.Model(&models.Review{}).Count(&total)

	var reviews []models.Review
	err = query.Preload("User").
		Order(column + " " + order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch reviews"})
		return
	}

	items := make([]gin.H, len(reviews))
	for i := range reviews {
		item := reviewResponse(&reviews[i])
		item["user"] = gin.H{
			"id":   reviews[i].User.UserUid,
			"name": reviews[i].User.Name,
		}
		items[i] = item
	}

	c.JSON(http.StatusOK, gin.H{
		"page":          page,
		"limit":         limit,
		"totalReviews":  total,
		"averageRating": book.AverageRating,
		"items":         items,
	})
}

func getMyReviewForBook(c *gin.Context) {
	user := currentUser(c)

	book, err := findBookByUid(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	var review models.Review
	if err := db.Where("user_id = ? AND book_id = ?", user.ID, book.ID).First(&review).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return
	}
	c.JSON(http.StatusOK, reviewResponse(&review))
}

func getBookReviewStats(c *gin.Context) {
	book, err := findBookByUid(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	var rows []struct {
		Rating int
		Count  int64
	}
	err = db.Model(&models.Review{}).
		Where("book_id = ?", book.ID).
		Select("rating, COUNT(*) as count").
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch review stats"})
		return
	}

	histogram := map[string]int64{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}
	var total int64
	for _, row := range rows {
		histogram[strconv.Itoa(row.Rating)] = row.Count
		total += row.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"averageRating": book.AverageRating,
		"totalReviews":  total,
		"histogram":     histogram,
	})
}

func getUserReviews(c *gin.Context) {
	user := currentUser(c)

	var reviews []models.Review
	err := db.Preload("Book").Where("user_id = ?", user.ID).Order("created_at DESC").Find(&reviews).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch reviews"})
		return
	}

	items := make([]gin.H, len(reviews))
	for i := range reviews {
		item := reviewResponse(&reviews[i])
		item["book"] = gin.H{
			"id":     reviews[i].Book.BookUid,
			"title":  reviews[i].Book.Title,
			"author": reviews[i].Book.Author,
		}
		items[i] = item
	}
	c.JSON(http.StatusOK, items)
}

func updateReview(c *gin.Context) {
	user := currentUser(c)

	var review models.Review
	if err := db.Where("review_uid = ?", c.Param("reviewId")).First(&review).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return
	}
	if review.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to update this review"})
		return
	}

	var request struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if request.Rating != 0 {
		if request.Rating < 1 || request.Rating > 5 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
			return
		}
		review.Rating = request.Rating
	}
	if comment := strings.TrimSpace(request.Comment); comment != "" {
		review.Comment = comment
	}

	now := time.Now()
	review.IsEdited = true
	review.EditedAt = &now

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&review).Error; err != nil {
			return err
		}
		return recomputeAverageRating(tx, review.BookID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update review"})
		return
	}

	c.JSON(http.StatusOK, reviewResponse(&review))
}

func deleteReview(c *gin.Context) {
	user := currentUser(c)

	var review models.Review
	if err := db.Where("review_uid = ?", c.Param("reviewId")).First(&review).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return
	}
	if review.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to delete this review"})
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		return recomputeAverageRating(tx, review.BookID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
}
