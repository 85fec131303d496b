package model

import (
	"time"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ClassificationRecord{},
		&DraftRecord{},
		&TrustedSender{},
	)
}

type Model struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:true" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ClassificationRecord persists one classifier invocation together with the
// approval flags computed at triage time. Flags are re-derived from current
// content whenever it changes; this row is the audit trail, not the source
// of truth.
type ClassificationRecord struct {
	Model
	MessageID      string   `gorm:"type:varchar(255);not null;index" json:"message_id"`
	ThreadID       string   `gorm:"type:varchar(255)" json:"thread_id"`
	SenderEmail    string   `gorm:"type:varchar(255);not null;index" json:"sender_email"`
	Subject        string   `gorm:"type:text" json:"subject"`
	Category       string   `gorm:"type:varchar(32);not null" json:"category"`
	Confidence     float64  `gorm:"not null" json:"confidence"`
	Reasoning      string   `gorm:"type:text" json:"reasoning"`
	Source         string   `gorm:"type:varchar(16);not null" json:"source"`
	Flags          []string `gorm:"type:json;serializer:json" json:"flags"`
	RequiresReview bool     `gorm:"not null" json:"requires_review"`
}

// DraftRecord persists a reply draft through its review lifecycle.
type DraftRecord struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	MessageID     string    `gorm:"type:varchar(255);not null;index" json:"message_id"`
	ThreadID      string    `gorm:"type:varchar(255)" json:"thread_id"`
	Recipient     string    `gorm:"type:varchar(255);not null" json:"recipient"`
	Subject       string    `gorm:"type:text;not null" json:"subject"`
	Body          string    `gorm:"type:text;not null" json:"body"`
	Status        string    `gorm:"type:varchar(16);not null;index" json:"status"`
	Source        string    `gorm:"type:varchar(16);not null" json:"source"`
	SentMessageID string    `gorm:"type:varchar(255)" json:"sent_message_id"`
}

// TrustedSender is a sender the user marked as known. The address is unique
// and stored lowercase.
type TrustedSender struct {
	Model
	Email string `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Name  string `gorm:"type:varchar(255)" json:"name"`
}
