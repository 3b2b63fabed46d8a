// Package models contains domain entities for the registration service
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is the optional free-text location of a registrant
type Address struct {
	District string `gorm:"type:text;not null;default:''" json:"district"`
	Mandal   string `gorm:"type:text;not null;default:''" json:"mandal"`
	Area     string `gorm:"type:text;not null;default:''" json:"area"`
}

// Submission is one registrant's stored form data plus the derived notification outcome.
// It is inserted once and then updated exactly once to attach RegNo and SMSStatus.
type Submission struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string     `gorm:"type:text;not null" json:"name"`
	Phone         string     `gorm:"type:text;not null;index:idx_submissions_phone" json:"phone"`
	BusinessTitle string     `gorm:"type:text;not null" json:"business_title"`
	Address       Address    `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Rating        *float64   `gorm:"type:double precision" json:"rating"`
	RegNo         *string    `gorm:"type:text" json:"reg_no,omitempty"`
	SMSStatus     *SMSStatus `gorm:"type:jsonb;serializer:json" json:"sms_status,omitempty"`
	CreatedAt     time.Time  `gorm:"not null;index:idx_submissions_created_at" json:"created_at"`
}

func (Submission) TableName() string {
	return "submissions"
}

// BeforeCreate assigns the generated id when the caller has not set one
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SubmissionFilter represents filter criteria for submission queries
type SubmissionFilter struct {
	ID            *uuid.UUID `json:"id,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	RegNo         *string    `json:"reg_no,omitempty"`
	SMSOK         *bool      `json:"sms_ok,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
