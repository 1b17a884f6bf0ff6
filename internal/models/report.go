package models

import (
	"time"

	"github.com/google/uuid"
)

// Report описывает объявление с отчётом об автомобиле.
type Report struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Make      string     `db:"make" json:"make"`
	Model     string     `db:"model" json:"model"`
	Year      int        `db:"year" json:"year"`
	Mileage   int        `db:"mileage" json:"mileage"`
	Price     float64    `db:"price" json:"price"`
	Lng       float64    `db:"lng" json:"lng"`
	Lat       float64    `db:"lat" json:"lat"`
	Approved  bool       `db:"approved" json:"approved"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`

	// Заполняются отдельными запросами при выдаче страницы поиска.
	Owner *ReportOwner `db:"-" json:"owner,omitempty"`
	Tags  []Tag        `db:"-" json:"tags"`
}

// ReportOwner содержит публичную часть данных владельца отчёта.
type ReportOwner struct {
	ID             uuid.UUID `db:"owner_id" json:"id"`
	Email          string    `db:"owner_email" json:"email"`
	ProfilePicture *string   `db:"owner_profile_picture" json:"profile_picture,omitempty"`
}

// ReportImage описывает изображение, прикреплённое к отчёту.
type ReportImage struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ReportID     uuid.UUID `db:"report_id" json:"report_id"`
	Filename     string    `db:"filename" json:"filename"`
	URL          string    `db:"url" json:"url"`
	OriginalName string    `db:"original_name" json:"original_name"`
	Size         int64     `db:"size" json:"size"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
