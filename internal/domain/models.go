package domain

import "time"

// Enumerations
const (
	RoleAdmin UserRole = "admin"
	RoleUMKM  UserRole = "umkm"

	PlotAvailable  PlotStatus = "available"
	PlotOccupied   PlotStatus = "occupied"
	PlotRestricted PlotStatus = "restricted"

	PermitSubmitted         PermitStatus = "submitted"
	PermitAccepted          PermitStatus = "accepted"
	PermitRejected          PermitStatus = "rejected"
	PermitDeletionRequested PermitStatus = "deletion_requested"

	ReportUnreviewed ReportStatus = "unreviewed"
	ReportInProgress ReportStatus = "in_progress"
	ReportResolved   ReportStatus = "resolved"

	DeletionPending  DeletionRequestStatus = "pending"
	DeletionApproved DeletionRequestStatus = "approved"
	DeletionRejected DeletionRequestStatus = "rejected"

	DocumentSupporting  DocumentKind = "supporting"
	DocumentCertificate DocumentKind = "certificate"

	NotificationNewSubmission      NotificationType = "new_submission"
	NotificationSubmissionApproved NotificationType = "submission_approved"
	NotificationSubmissionRejected NotificationType = "submission_rejected"
	NotificationNewReport          NotificationType = "new_report"
	NotificationUnhandledReport    NotificationType = "unhandled_report"
	NotificationCertificateIssued  NotificationType = "certificate_issued"
	NotificationDeletionRequested  NotificationType = "deletion_requested"
	NotificationDeletionApproved   NotificationType = "deletion_approved"
	NotificationDeletionRejected   NotificationType = "deletion_rejected"
)

type UserRole string
type PlotStatus string
type PermitStatus string
type ReportStatus string
type DeletionRequestStatus string
type DocumentKind string
type NotificationType string

// Actor is the authenticated caller of an operation. The zero value is an
// anonymous caller.
type Actor struct {
	ID    int64
	Email string
	Name  string
	Role  UserRole
}

func (a Actor) IsAnonymous() bool { return a.ID == 0 }
func (a Actor) IsAdmin() bool     { return a.ID != 0 && a.Role == RoleAdmin }
func (a Actor) IsUMKM() bool      { return a.ID != 0 && a.Role == RoleUMKM }

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         UserRole
	IsActive     bool
	Name         string
	NIK          string
	Phone        *string
	PhotoURL     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Plot is a government-designated location on the map (master_locations).
type Plot struct {
	ID                int64
	Latitude          float64
	Longitude         float64
	Status            PlotStatus
	RestrictionReason *string
	Label             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PermitApplication is a business owner's claim on a plot (umkm_locations).
type PermitApplication struct {
	ID           int64
	UserID       int64
	PlotID       int64
	BusinessName string
	BusinessType string
	Status       PermitStatus
	DateApplied  time.Time
	DateExpired  *time.Time
	DecidedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Populated by list/detail queries.
	OwnerName string
	Plot      *Plot
}

type Report struct {
	ID             int64
	ReportType     string
	Description    string
	Latitude       float64
	Longitude      float64
	PhotoURL       string
	Status         ReportStatus
	AdminHandlerID *int64
	DateReported   time.Time
	RemindedAt     *time.Time
}

type Notification struct {
	ID          int64
	UserID      int64
	Type        NotificationType
	Title       string
	Message     string
	Link        *string
	IsRead      bool
	ReferenceID *int64
	CreatedAt   time.Time
}

// Document is a file attached to an application (submissions table).
type Document struct {
	ID            int64
	ApplicationID int64
	Kind          DocumentKind
	FileURL       string
	OriginalName  string
	UploadedBy    int64
	CreatedAt     time.Time
}

type DeletionRequest struct {
	ID             int64
	ApplicationID  int64
	UserID         int64
	Reason         string
	PreviousStatus PermitStatus
	Status         DeletionRequestStatus
	DecidedBy      *int64
	CreatedAt      time.Time
	DecidedAt      *time.Time
}
