package domain

import "strings"

func (s PlotStatus) Valid() bool {
	switch s {
	case PlotAvailable, PlotOccupied, PlotRestricted:
		return true
	}
	return false
}

func (s PermitStatus) Valid() bool {
	switch s {
	case PermitSubmitted, PermitAccepted, PermitRejected, PermitDeletionRequested:
		return true
	}
	return false
}

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportUnreviewed, ReportInProgress, ReportResolved:
		return true
	}
	return false
}

// CheckCreatablePlotStatus reports whether an administrator may put a plot into
// status directly. Occupancy is derived from accepted applications only.
func CheckCreatablePlotStatus(s PlotStatus) error {
	switch s {
	case PlotAvailable, PlotRestricted:
		return nil
	case PlotOccupied:
		return InvalidStatus("Status lokasi 'occupied' hanya dapat diperoleh melalui persetujuan pengajuan")
	}
	return InvalidStatus("Status lokasi tidak valid")
}

// RestrictionReasonFor returns the reason to persist for a plot in status s.
// Reasons are dropped unless the plot is restricted, and a blank reason is
// stored as absent rather than as an empty string.
func RestrictionReasonFor(s PlotStatus, reason *string) *string {
	if s != PlotRestricted || reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// PlotStatusAfterDecision maps an application decision to the status its plot
// must take.
func PlotStatusAfterDecision(decision PermitStatus) (PlotStatus, error) {
	switch decision {
	case PermitAccepted:
		return PlotOccupied, nil
	case PermitRejected:
		return PlotAvailable, nil
	}
	return "", InvalidStatus("Status keputusan harus 'accepted' atau 'rejected'")
}

// AdvanceReport validates a report status move and returns the handler the
// report must carry afterwards. Allowed moves are unreviewed→in_progress,
// unreviewed→resolved (both assign adminID) and in_progress→resolved (handler
// kept).
func AdvanceReport(current, next ReportStatus, handler *int64, adminID int64) (*int64, error) {
	switch {
	case current == ReportUnreviewed && (next == ReportInProgress || next == ReportResolved):
		id := adminID
		return &id, nil
	case current == ReportInProgress && next == ReportResolved:
		if handler == nil {
			id := adminID
			return &id, nil
		}
		return handler, nil
	}
	if !next.Valid() {
		return nil, InvalidStatus("Status laporan tidak valid")
	}
	return nil, InvalidTransition("Perubahan status laporan dari '" + string(current) + "' ke '" + string(next) + "' tidak diizinkan")
}

// CheckReportDeletable guards report deletion on resolution.
func CheckReportDeletable(s ReportStatus) error {
	if s != ReportResolved {
		return PreconditionFailed("Laporan hanya dapat dihapus setelah berstatus selesai")
	}
	return nil
}

// CheckOwnerEditable guards owner edits and direct deletion of an application.
func CheckOwnerEditable(s PermitStatus) error {
	switch s {
	case PermitSubmitted, PermitRejected:
		return nil
	}
	return PreconditionFailed("Pengajuan yang sudah disetujui tidak dapat diubah atau dihapus langsung")
}

// CheckDeletionRequestable guards the owner's request to remove an accepted
// application.
func CheckDeletionRequestable(s PermitStatus) error {
	switch s {
	case PermitAccepted:
		return nil
	case PermitDeletionRequested:
		return Conflict("Permohonan penghapusan sudah diajukan")
	}
	return PreconditionFailed("Permohonan penghapusan hanya untuk pengajuan yang sudah disetujui")
}
