package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/ports"
	"lokasi-umkm-backend/internal/repository"
	"lokasi-umkm-backend/internal/server/authctx"
	"lokasi-umkm-backend/internal/service"
)

// listedPermits serves List from a fixed slice. Other methods are unused.
type listedPermits struct {
	ports.PermitStore
	apps []domain.PermitApplication
}

func (s listedPermits) List(_ context.Context, f repository.PermitFilter) ([]domain.PermitApplication, error) {
	var out []domain.PermitApplication
	for _, a := range s.apps {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.UserID != nil && a.UserID != *f.UserID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func exportFixture() ExportHandler {
	label := "Blok A-1"
	apps := []domain.PermitApplication{
		{
			ID: 10, UserID: 2, OwnerName: "Siti", PlotID: 1, BusinessName: "Warung Siti", BusinessType: "kuliner",
			Status: domain.PermitAccepted, DateApplied: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			Plot: &domain.Plot{ID: 1, Latitude: -6.91, Longitude: 107.61, Label: &label},
		},
		{
			ID: 11, UserID: 3, OwnerName: "Budi", PlotID: 2, BusinessName: "Bakso Budi", BusinessType: "kuliner",
			Status: domain.PermitSubmitted, DateApplied: time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
		},
		{
			ID: 12, UserID: 2, OwnerName: "Siti", PlotID: 3, BusinessName: "Jahit Siti", BusinessType: "jasa",
			Status: domain.PermitAccepted, DateApplied: time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC),
		},
	}
	return ExportHandler{
		Permits: service.PermitService{Permits: listedPermits{apps: apps}},
		Now:     func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) },
	}
}

func exportRequest(t *testing.T, h ExportHandler, actor domain.Actor, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authctx.WithActor(req.Context(), actor)))
		})
	})
	h.RegisterAdminRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestExportSubmissionsCSV(t *testing.T) {
	t.Parallel()
	h := exportFixture()

	tests := []struct {
		name     string
		target   string
		filename string
		ids      []string
	}{
		{"all", "/submissions/export?format=csv", "pengajuan_20260501_080000.csv", []string{"10", "11", "12"}},
		{"status filter", "/submissions/export?format=csv&status=accepted", "pengajuan_20260501_080000.csv", []string{"10", "12"}},
		{"date range", "/submissions/export?format=csv&from=2026-03-01&to=2026-03-31", "pengajuan_20260301_20260331.csv", []string{"10", "11"}},
		{"status and date", "/submissions/export?format=csv&status=accepted&from=2026-03-01&to=2026-03-31", "pengajuan_20260301_20260331.csv", []string{"10"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := exportRequest(t, h, adminActor, tc.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
				t.Fatalf("unexpected content type %q", ct)
			}
			if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, tc.filename) {
				t.Fatalf("expected filename %q in %q", tc.filename, cd)
			}

			records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
			if err != nil {
				t.Fatalf("read csv: %v", err)
			}
			if len(records) == 0 || records[0][0] != "ID" || records[0][2] != "Nama Usaha" || records[0][7] != "Status" {
				t.Fatalf("unexpected header %v", records)
			}
			var ids []string
			for _, row := range records[1:] {
				ids = append(ids, row[0])
			}
			if strings.Join(ids, ",") != strings.Join(tc.ids, ",") {
				t.Fatalf("expected rows %v, got %v", tc.ids, ids)
			}
		})
	}
}

func TestExportSubmissionsXLSX(t *testing.T) {
	t.Parallel()
	rec := exportRequest(t, exportFixture(), adminActor, "/submissions/export?status=accepted&from=2026-03-01&to=2026-03-31")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "pengajuan_20260301_20260331.xlsx") {
		t.Fatalf("unexpected disposition %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Pengajuan")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %v", rows)
	}
	if rows[0][0] != "ID" || rows[0][1] != "Pemilik" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "10" || rows[1][2] != "Warung Siti" || rows[1][4] != "Blok A-1" || rows[1][7] != "accepted" {
		t.Fatalf("unexpected row %v", rows[1])
	}
}

func TestExportRejectsBadInput(t *testing.T) {
	t.Parallel()
	h := exportFixture()

	tests := []struct {
		name   string
		actor  domain.Actor
		target string
		status int
	}{
		{"bad range", adminActor, "/submissions/export?from=2026-03-10&to=2026-03-01", http.StatusBadRequest},
		{"malformed date", adminActor, "/submissions/export?from=kemarin", http.StatusBadRequest},
		{"unknown format", adminActor, "/submissions/export?format=pdf", http.StatusBadRequest},
		{"unknown status", adminActor, "/submissions/export?status=lost", http.StatusBadRequest},
		{"anonymous", domain.Actor{}, "/submissions/export", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rec := exportRequest(t, h, tc.actor, tc.target); rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}
