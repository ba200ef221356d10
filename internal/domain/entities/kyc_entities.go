package entities

import (
	"time"

	"github.com/google/uuid"
)

// KYCStatus represents the overall status of a verification record
type KYCStatus string

const (
	KYCStatusPending     KYCStatus = "pending"
	KYCStatusSubmitted   KYCStatus = "submitted"
	KYCStatusUnderReview KYCStatus = "under_review"
	KYCStatusVerified    KYCStatus = "verified"
	KYCStatusRejected    KYCStatus = "rejected"
	KYCStatusExpired     KYCStatus = "expired"
)

// ValidKYCTransitions defines allowed status transitions. Rejected
// records are superseded by a fresh resubmission rather than
// transitioned; verified records expire on wall-clock comparison.
var ValidKYCTransitions = map[KYCStatus][]KYCStatus{
	KYCStatusPending:     {KYCStatusSubmitted},
	KYCStatusSubmitted:   {KYCStatusUnderReview, KYCStatusVerified, KYCStatusRejected},
	KYCStatusUnderReview: {KYCStatusVerified, KYCStatusRejected},
	KYCStatusVerified:    {KYCStatusExpired},
	KYCStatusRejected:    {},
	KYCStatusExpired:     {},
}

// CanTransitionTo checks if transition to new status is allowed
func (s KYCStatus) CanTransitionTo(newStatus KYCStatus) bool {
	for _, allowed := range ValidKYCTransitions[s] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// KYCDocumentStatus is the per-document review status
type KYCDocumentStatus string

const (
	KYCDocumentPending  KYCDocumentStatus = "pending"
	KYCDocumentApproved KYCDocumentStatus = "approved"
	KYCDocumentRejected KYCDocumentStatus = "rejected"
)

// KYCDocument is one uploaded identity document
type KYCDocument struct {
	Type            string            `json:"type"` // passport, drivers_license, national_id
	FileURL         string            `json:"file_url"`
	Status          KYCDocumentStatus `json:"status"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	UploadedAt      time.Time         `json:"uploaded_at"`
}

// KYCPersonalInfo holds the applicant's declared identity
type KYCPersonalInfo struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Nationality string     `json:"nationality,omitempty"`
	Address     string     `json:"address,omitempty"`
	City        string     `json:"city,omitempty"`
	Country     string     `json:"country,omitempty"`
}

// KYCRecord is a user's verification record. One record is current
// per user; a resubmission after rejection creates a new record that
// supersedes the old one.
type KYCRecord struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	PersonalInfo    KYCPersonalInfo `json:"personal_info"`
	Documents       []KYCDocument   `json:"documents"`
	Status          KYCStatus       `json:"status"`
	ReviewedBy      *uuid.UUID      `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsVerified reports whether the record grants access at the given
// time; a verified record past its expiry does not.
func (k *KYCRecord) IsVerified(now time.Time) bool {
	if k.Status != KYCStatusVerified {
		return false
	}
	return k.ExpiresAt == nil || now.Before(*k.ExpiresAt)
}

// NeedsRenewal reports whether a verified record is inside the
// renewal window before expiry.
func (k *KYCRecord) NeedsRenewal(now time.Time, window time.Duration) bool {
	if k.Status != KYCStatusVerified || k.ExpiresAt == nil {
		return false
	}
	return now.After(k.ExpiresAt.Add(-window))
}
