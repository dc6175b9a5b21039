package ports

import (
	"context"
	"time"

	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/repository"
	"lokasi-umkm-backend/internal/storage"
)

// HealthChecker is used to probe dependencies.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// TxRunner scopes a group of store calls to one transaction. Stores called
// with the ctx passed to fn take part in it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserStore interface {
	Create(ctx context.Context, p repository.CreateUserParams) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, role *domain.UserRole, limit int) ([]domain.User, error)
	ActiveAdminIDs(ctx context.Context) ([]int64, error)
	UpdateProfile(ctx context.Context, id int64, name string, phone *string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	UpdatePhoto(ctx context.Context, id int64, url string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type PlotStore interface {
	Create(ctx context.Context, p repository.CreatePlotParams) (*domain.Plot, error)
	Get(ctx context.Context, id int64) (*domain.Plot, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Plot, error)
	List(ctx context.Context, status *domain.PlotStatus) ([]domain.Plot, error)
	Update(ctx context.Context, p domain.Plot) (*domain.Plot, error)
	SetStatus(ctx context.Context, id int64, status domain.PlotStatus) error
	Delete(ctx context.Context, id int64) error
}

type PermitStore interface {
	Create(ctx context.Context, p repository.CreatePermitParams) (*domain.PermitApplication, error)
	Get(ctx context.Context, id int64) (*domain.PermitApplication, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.PermitApplication, error)
	List(ctx context.Context, f repository.PermitFilter) ([]domain.PermitApplication, error)
	CountForPlot(ctx context.Context, plotID, excludeID int64, statuses ...domain.PermitStatus) (int, error)
	UpdateDetails(ctx context.Context, id int64, name, businessType string, status domain.PermitStatus) error
	SetStatus(ctx context.Context, id int64, p repository.SetPermitStatusParams) error
	Delete(ctx context.Context, id int64) error
}

type DocumentStore interface {
	Create(ctx context.Context, p repository.CreateDocumentParams) (*domain.Document, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]domain.Document, error)
	ListByPlot(ctx context.Context, plotID int64) ([]domain.Document, error)
}

type DeletionRequestStore interface {
	Create(ctx context.Context, p repository.CreateDeletionRequestParams) (*domain.DeletionRequest, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.DeletionRequest, error)
	List(ctx context.Context, status *domain.DeletionRequestStatus) ([]domain.DeletionRequest, error)
	Decide(ctx context.Context, id int64, status domain.DeletionRequestStatus, adminID int64, at time.Time) error
	CloseForPlot(ctx context.Context, plotID, adminID int64, at time.Time) (int64, error)
}

type ReportStore interface {
	Create(ctx context.Context, p repository.CreateReportParams) (*domain.Report, error)
	Get(ctx context.Context, id int64) (*domain.Report, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Report, error)
	List(ctx context.Context, status *domain.ReportStatus, limit int) ([]domain.Report, error)
	ListUnreminded(ctx context.Context, cutoff time.Time, limit int) ([]domain.Report, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
	SetStatus(ctx context.Context, id int64, status domain.ReportStatus, handler *int64) error
	Delete(ctx context.Context, id int64) error
}

type NotificationStore interface {
	Create(ctx context.Context, in repository.CreateNotificationInput) (*domain.Notification, error)
	List(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, userID, id int64) error
}

type DeviceTokenStore interface {
	Register(ctx context.Context, in repository.RegisterTokenInput) error
}

// AdminDirectory lists the administrators that receive operational alerts.
type AdminDirectory interface {
	ActiveAdminIDs(ctx context.Context) ([]int64, error)
}

// FileStore keeps uploaded bytes and returns a retrievable reference.
type FileStore interface {
	Save(category string, up storage.Upload) (string, error)
	Delete(ref string) error
}

// PushSender delivers a notification to a user's devices.
type PushSender interface {
	Send(ctx context.Context, userID int64, title, body string, data map[string]string) error
}

// EventPublisher hands domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}
