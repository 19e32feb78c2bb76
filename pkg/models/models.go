package models

import (
	"time"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

const (
	BorrowStatusActive   = "Active"
	BorrowStatusPending  = "Pending"
	BorrowStatusReturned = "Returned"
	BorrowStatusOverdue  = "Overdue"
)

const (
	PaymentStatusPending  = "Pending"
	PaymentStatusApproved = "Approved"
	PaymentStatusRejected = "Rejected"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	UserUid      string `gorm:"type:uuid;uniqueIndex;not null"`
	Name         string `gorm:"size:120;not null"`
	Email        string `gorm:"size:254;uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	StudentID    string `gorm:"size:40"`
	Department   string `gorm:"size:80"`
	Role         string `gorm:"size:20;not null;default:'student'"`
	IDPictureURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Book struct {
	ID              uint   `gorm:"primaryKey"`
	BookUid         string `gorm:"type:uuid;uniqueIndex;not null"`
	Title           string `gorm:"not null"`
	Author          string `gorm:"not null"`
	ISBN            string `gorm:"size:20;uniqueIndex;not null"`
	Category        string `gorm:"size:80;not null"`
	PublicationYear int
	Language        string `gorm:"size:40"`
	Description     string
	ImageURL        string
	TotalCopies     int     `gorm:"not null;check:total_copies >= 0"`
	AvailableCopies int     `gorm:"not null;check:available_copies >= 0"`
	AverageRating   float64 `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type BorrowRecord struct {
	ID         uint   `gorm:"primaryKey"`
	BorrowUid  string `gorm:"type:uuid;uniqueIndex;not null"`
	UserID     uint   `gorm:"not null;index"`
	BookID     uint   `gorm:"not null;index"`
	Status     string `gorm:"size:20;not null"`
	BorrowDate time.Time
	DueDate    time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	User User `gorm:"foreignKey:UserID"`
	Book Book `gorm:"foreignKey:BookID"`
}

type Payment struct {
	ID            uint   `gorm:"primaryKey"`
	PaymentUid    string `gorm:"type:uuid;uniqueIndex;not null"`
	UserID        uint   `gorm:"not null;index"`
	ScreenshotURL string `gorm:"not null"`
	Reference     string `gorm:"size:120"`
	Status        string `gorm:"size:20;not null;default:'Pending'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	User User `gorm:"foreignKey:UserID"`
}

type Review struct {
	ID        uint   `gorm:"primaryKey"`
	ReviewUid string `gorm:"type:uuid;uniqueIndex;not null"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_reviews_user_book"`
	BookID    uint   `gorm:"not null;uniqueIndex:idx_reviews_user_book"`
	Rating    int    `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string `gorm:"size:1000;not null"`
	IsEdited  bool   `gorm:"not null;default:false"`
	EditedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"foreignKey:UserID"`
	Book Book `gorm:"foreignKey:BookID"`
}
