package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-backend/pkg/models"
)

var errNoAvailableCopies = errors.New("no available copies")

func bookResponse(b *models.Book) gin.H {
	return gin.H{
		"id":              b.BookUid,
		"title":           b.Title,
		"author":          b.Author,
		"isbn":            b.ISBN,
		"category":        b.Category,
		"publicationYear": b.PublicationYear,
		"language":        b.Language,
		"description":     b.Description,
		"image":           b.ImageURL,
		"totalCopies":     b.TotalCopies,
		"availableCopies": b.AvailableCopies,
		"averageRating":   b.AverageRating,
	}
}

func findBookByUid(bookUid string) (*models.Book, error) {
	var book models.Book
	if err := db.Where("book_uid = ?", bookUid).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func getBooks(c *gin.Context) {
	var books []models.Book
	if err := db.Order("title").Find(&books).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch books"})
		return
	}

	items := make([]gin.H, len(books))
	for i := range books {
		items[i] = bookResponse(&books[i])
	}
	c.JSON(http.StatusOK, items)
}

func getBook(c *gin.Context) {
	book, err := findBookByUid(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	c.JSON(http.StatusOK, bookResponse(book))
}

func addBook(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	author := strings.TrimSpace(c.PostForm("author"))
	isbn := strings.TrimSpace(c.PostForm("isbn"))
	category := strings.TrimSpace(c.PostForm("category"))

	if title == "" || author == "" || isbn == "" || category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, author, isbn and category are required"})
		return
	}

	year, err := strconv.Atoi(c.PostForm("publicationYear"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "publicationYear must be a number"})
		return
	}
	totalCopies, err := strconv.Atoi(c.PostForm("totalCopies"))
	if err != nil || totalCopies < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totalCopies must be a non-negative number"})
		return
	}

	book := models.Book{
		BookUid:         uuid.New().String(),
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		Category:        category,
		PublicationYear: year,
		Language:        strings.TrimSpace(c.PostForm("language")),
		Description:     c.PostForm("description"),
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
	}

	if image, err := saveUpload(c, "image", "covers"); err == nil {
		book.ImageURL = image
	}

	if err := db.Create(&book).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a book with this ISBN already exists"})
		return
	}

	c.JSON(http.StatusCreated, bookResponse(&book))
}

func updateBook(c *gin.Context) {
	book, err := findBookByUid(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	if v := strings.TrimSpace(c.PostForm("title")); v != "" {
		book.Title = v
	}
	if v := strings.TrimSpace(c.PostForm("author")); v != "" {
		book.Author = v
	}
	if v := strings.TrimSpace(c.PostForm("isbn")); v != "" {
		book.ISBN = v
	}
	if v := strings.TrimSpace(c.PostForm("category")); v != "" {
		book.Category = v
	}
	if v := strings.TrimSpace(c.PostForm("language")); v != "" {
		book.Language = v
	}
	if v := c.PostForm("description"); v != "" {
		book.Description = v
	}
	if v := c.PostForm("publicationYear"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "publicationYear must be a number"})
			return
		}
		book.PublicationYear = year
	}
	if v := c.PostForm("totalCopies"); v != "" {
		totalCopies, err := strconv.Atoi(v)
		if err != nil || totalCopies < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "totalCopies must be a non-negative number"})
			return
		}
		// Keep the outstanding-loan count intact when the total changes.
		borrowed := book.TotalCopies - book.AvailableCopies
		if totalCopies < borrowed {
			c.JSON(http.StatusConflict, gin.H{"error": "totalCopies cannot be lower than the number of copies on loan"})
			return
		}
		book.TotalCopies = totalCopies
		book.AvailableCopies = totalCopies - borrowed
	}
	if image, err := saveUpload(c, "image", "covers"); err == nil {
		book.ImageURL = image
	}

	if err := db.Save(book).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update book"})
		return
	}

	c.JSON(http.StatusOK, bookResponse(book))
}

func deleteBook(c *gin.Context) {
	book, err := findBookByUid(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	if book.AvailableCopies != book.TotalCopies {
		c.JSON(http.StatusConflict, gin.H{"error": "book is currently borrowed and cannot be deleted"})
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", book.ID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(book).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete book"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "book deleted successfully"})
}

// adjustAvailability is the only mutation of a book's availableCopies. It
// runs inside the same transaction as the borrow-record write and refuses
// to move the counter outside [0, totalCopies].
func adjustAvailability(tx *gorm.DB, bookID uint, delta int) error {
	result := tx.Model(&models.Book{}).
		Where("id = ?", bookID).
		Where("available_copies + ? >= 0", delta).
		Where("available_copies + ? <= total_copies", delta).
		UpdateColumn("available_copies", gorm.Expr("available_copies + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNoAvailableCopies
	}
	return nil
}
