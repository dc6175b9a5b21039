package service

import (
	"context"
	"log/slog"
	"time"

	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/ports"
	"lokasi-umkm-backend/internal/repository"
)

const msgPlotNotFound = "Lokasi tidak ditemukan"

// PlotService manages the master list of vending plots.
type PlotService struct {
	Tx        ports.TxRunner
	Plots     ports.PlotStore
	Permits   ports.PermitStore
	Documents ports.DocumentStore
	Deletions ports.DeletionRequestStore
	Files     ports.FileStore
	Logger    *slog.Logger
	Clock     func() time.Time
}

type PlotInput struct {
	Latitude          float64
	Longitude         float64
	Status            domain.PlotStatus
	RestrictionReason *string
	Label             *string
}

func (s PlotService) ListPlots(ctx context.Context, status *domain.PlotStatus) ([]domain.Plot, error) {
	if status != nil && !status.Valid() {
		return nil, domain.InvalidStatus("Status lokasi tidak valid")
	}
	plots, err := s.Plots.List(ctx, status)
	if err != nil {
		return nil, storeErr("list plots", err, "")
	}
	return plots, nil
}

func (s PlotService) GetPlot(ctx context.Context, id int64) (*domain.Plot, error) {
	p, err := s.Plots.Get(ctx, id)
	if err != nil {
		return nil, storeErr("get plot", err, msgPlotNotFound)
	}
	return p, nil
}

// CreatePlot adds a plot. Plots start available or restricted; occupancy only
// comes from an accepted application.
func (s PlotService) CreatePlot(ctx context.Context, actor domain.Actor, in PlotInput) (*domain.Plot, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Hanya admin yang dapat menambah lokasi")
	}
	if in.Status == "" {
		in.Status = domain.PlotAvailable
	}
	if err := domain.CheckCreatablePlotStatus(in.Status); err != nil {
		return nil, err
	}
	if err := validateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}

	p, err := s.Plots.Create(ctx, repository.CreatePlotParams{
		Latitude:          in.Latitude,
		Longitude:         in.Longitude,
		Status:            in.Status,
		RestrictionReason: domain.RestrictionReasonFor(in.Status, in.RestrictionReason),
		Label:             optionalText(in.Label),
	})
	if err != nil {
		return nil, storeErr("create plot", err, "")
	}
	s.logger().Info("plot created", "plot_id", p.ID, "status", p.Status, "admin_id", actor.ID)
	return p, nil
}

// UpdatePlot edits a plot's position, label and status. An occupied plot keeps
// its status; other plots may only move between available and restricted, and
// a plot with pending applications cannot be restricted.
func (s PlotService) UpdatePlot(ctx context.Context, actor domain.Actor, id int64, in PlotInput) (*domain.Plot, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Hanya admin yang dapat mengubah lokasi")
	}
	if err := validateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}

	var updated *domain.Plot
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.Plots.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr("load plot", err, msgPlotNotFound)
		}

		status := in.Status
		if status == "" {
			status = current.Status
		}
		switch {
		case current.Status == domain.PlotOccupied && status != domain.PlotOccupied:
			return domain.PreconditionFailed("Lokasi sedang ditempati dan statusnya tidak dapat diubah")
		case current.Status != domain.PlotOccupied:
			if err := domain.CheckCreatablePlotStatus(status); err != nil {
				return err
			}
		}
		if status == domain.PlotRestricted && current.Status != domain.PlotRestricted {
			n, err := s.Permits.CountForPlot(ctx, id, 0, domain.PermitSubmitted, domain.PermitDeletionRequested)
			if err != nil {
				return storeErr("count applications", err, "")
			}
			if n > 0 {
				return domain.PreconditionFailed("Lokasi masih memiliki pengajuan yang sedang diproses")
			}
		}

		current.Latitude = in.Latitude
		current.Longitude = in.Longitude
		current.Status = status
		current.RestrictionReason = domain.RestrictionReasonFor(status, in.RestrictionReason)
		current.Label = optionalText(in.Label)

		updated, err = s.Plots.Update(ctx, *current)
		if err != nil {
			return storeErr("update plot", err, msgPlotNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("update plot", err, "")
	}
	return updated, nil
}

// DeletePlot removes a plot together with every application that references it.
// Pending deletion requests of those applications are closed as approved and
// their files are removed once the transaction commits.
func (s PlotService) DeletePlot(ctx context.Context, actor domain.Actor, id int64) error {
	if !actor.IsAdmin() {
		return domain.Forbidden("Hanya admin yang dapat menghapus lokasi")
	}

	var (
		docs   []domain.Document
		closed int64
	)
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.Plots.GetForUpdate(ctx, id); err != nil {
			return storeErr("load plot", err, msgPlotNotFound)
		}
		var err error
		if s.Documents != nil {
			if docs, err = s.Documents.ListByPlot(ctx, id); err != nil {
				return storeErr("list plot documents", err, "")
			}
		}
		if s.Deletions != nil {
			if closed, err = s.Deletions.CloseForPlot(ctx, id, actor.ID, clockOrNow(s.Clock)); err != nil {
				return storeErr("close deletion requests", err, "")
			}
		}
		if err := s.Plots.Delete(ctx, id); err != nil {
			return storeErr("delete plot", err, msgPlotNotFound)
		}
		return nil
	})
	if err != nil {
		return storeErr("delete plot", err, "")
	}

	if s.Files != nil {
		for _, d := range docs {
			if err := s.Files.Delete(d.FileURL); err != nil {
				s.logger().Warn("delete stored file", "ref", d.FileURL, "err", err)
			}
		}
	}
	s.logger().Info("plot deleted", "plot_id", id, "admin_id", actor.ID, "files", len(docs), "closed_requests", closed)
	return nil
}

func (s PlotService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
