package handler

import (
	"time"

	"lokasi-umkm-backend/internal/domain"
)

type userDTO struct {
	ID       int64   `json:"id"`
	Name     string  `json:"nama"`
	Email    string  `json:"email"`
	NIK      string  `json:"nik"`
	Phone    *string `json:"phone"`
	PhotoURL *string `json:"photoUrl"`
	Role     string  `json:"role"`
	IsActive bool    `json:"isActive"`
}

func toUserDTO(u domain.User) userDTO {
	return userDTO{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		NIK:      u.NIK,
		Phone:    u.Phone,
		PhotoURL: u.PhotoURL,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}

type plotDTO struct {
	ID                int64   `json:"id"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	Status            string  `json:"status"`
	RestrictionReason *string `json:"restrictionReason"`
	Label             *string `json:"label"`
}

func toPlotDTO(p domain.Plot) plotDTO {
	return plotDTO{
		ID:                p.ID,
		Latitude:          p.Latitude,
		Longitude:         p.Longitude,
		Status:            string(p.Status),
		RestrictionReason: p.RestrictionReason,
		Label:             p.Label,
	}
}

type documentDTO struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	FileURL      string `json:"fileUrl"`
	OriginalName string `json:"originalName"`
	UploadedAt   string `json:"uploadedAt"`
}

func toDocumentDTO(d domain.Document) documentDTO {
	return documentDTO{
		ID:           d.ID,
		Kind:         string(d.Kind),
		FileURL:      d.FileURL,
		OriginalName: d.OriginalName,
		UploadedAt:   formatTime(d.CreatedAt),
	}
}

type applicationDTO struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"userId"`
	OwnerName    string        `json:"ownerName,omitempty"`
	PlotID       int64         `json:"plotId"`
	Plot         *plotDTO      `json:"plot,omitempty"`
	BusinessName string        `json:"businessName"`
	BusinessType string        `json:"businessType"`
	Status       string        `json:"status"`
	DateApplied  string        `json:"dateApplied"`
	DateExpired  *string       `json:"dateExpired"`
	DecidedAt    *string       `json:"decidedAt"`
	Documents    []documentDTO `json:"documents,omitempty"`
}

func toApplicationDTO(a domain.PermitApplication) applicationDTO {
	out := applicationDTO{
		ID:           a.ID,
		UserID:       a.UserID,
		OwnerName:    a.OwnerName,
		PlotID:       a.PlotID,
		BusinessName: a.BusinessName,
		BusinessType: a.BusinessType,
		Status:       string(a.Status),
		DateApplied:  formatTime(a.DateApplied),
		DateExpired:  formatTimePtr(a.DateExpired),
		DecidedAt:    formatTimePtr(a.DecidedAt),
	}
	if a.Plot != nil {
		p := toPlotDTO(*a.Plot)
		out.Plot = &p
	}
	return out
}

type deletionRequestDTO struct {
	ID             int64   `json:"id"`
	ApplicationID  *int64  `json:"applicationId"`
	UserID         int64   `json:"userId"`
	Reason         string  `json:"reason"`
	PreviousStatus string  `json:"previousStatus"`
	Status         string  `json:"status"`
	DecidedBy      *int64  `json:"decidedBy"`
	CreatedAt      string  `json:"createdAt"`
	DecidedAt      *string `json:"decidedAt"`
}

func toDeletionRequestDTO(d domain.DeletionRequest) deletionRequestDTO {
	out := deletionRequestDTO{
		ID:             d.ID,
		UserID:         d.UserID,
		Reason:         d.Reason,
		PreviousStatus: string(d.PreviousStatus),
		Status:         string(d.Status),
		DecidedBy:      d.DecidedBy,
		CreatedAt:      formatTime(d.CreatedAt),
		DecidedAt:      formatTimePtr(d.DecidedAt),
	}
	// approved requests outlive the application they removed
	if d.ApplicationID != 0 {
		id := d.ApplicationID
		out.ApplicationID = &id
	}
	return out
}

type reportDTO struct {
	ID             int64   `json:"id"`
	ReportType     string  `json:"reportType"`
	Description    string  `json:"description"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	PhotoURL       string  `json:"photoUrl"`
	Status         string  `json:"status"`
	AdminHandlerID *int64  `json:"adminHandlerId"`
	DateReported   string  `json:"dateReported"`
}

func toReportDTO(r domain.Report) reportDTO {
	return reportDTO{
		ID:             r.ID,
		ReportType:     r.ReportType,
		Description:    r.Description,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		PhotoURL:       r.PhotoURL,
		Status:         string(r.Status),
		AdminHandlerID: r.AdminHandlerID,
		DateReported:   formatTime(r.DateReported),
	}
}

type notificationDTO struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Message     string  `json:"message"`
	Link        *string `json:"link"`
	IsRead      bool    `json:"isRead"`
	ReferenceID *int64  `json:"referenceId"`
	Timestamp   string  `json:"timestamp"`
}

func toNotificationDTO(n domain.Notification) notificationDTO {
	return notificationDTO{
		ID:          n.ID,
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		Link:        n.Link,
		IsRead:      n.IsRead,
		ReferenceID: n.ReferenceID,
		Timestamp:   formatTime(n.CreatedAt),
	}
}

func mapSlice[T, D any](items []T, fn func(T) D) []D {
	out := make([]D, 0, len(items))
	for _, it := range items {
		out = append(out, fn(it))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
