package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/server/authctx"
	"lokasi-umkm-backend/internal/service"
)

const exportLimit = 10000

// ExportHandler downloads applications and reports as CSV or XLSX.
type ExportHandler struct {
	Permits service.PermitService
	Reports service.ReportService
	Logger  *slog.Logger
	Now     func() time.Time
}

// table is a sheet ready to be written in either format.
type table struct {
	sheet  string
	header []string
	widths []float64
	rows   [][]any
}

func (h ExportHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/submissions/export", h.exportSubmissions)
	r.Get("/reports/export", h.exportReports)
}

func (h ExportHandler) exportSubmissions(w http.ResponseWriter, r *http.Request) {
	var status *domain.PermitStatus
	if s := queryStatus(r); s != nil {
		st := domain.PermitStatus(*s)
		status = &st
	}
	period, ok := parseDateRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Rentang tanggal tidak valid (format YYYY-MM-DD)")
		return
	}
	apps, err := h.Permits.ListApplications(r.Context(), authctx.Actor(r.Context()), status)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	var rows []domain.PermitApplication
	for _, a := range apps {
		if period.contains(a.DateApplied) {
			rows = append(rows, a)
		}
	}
	h.write(w, r, "pengajuan", period, applicationTable(rows))
}

func (h ExportHandler) exportReports(w http.ResponseWriter, r *http.Request) {
	var status *domain.ReportStatus
	if s := queryStatus(r); s != nil {
		st := domain.ReportStatus(*s)
		status = &st
	}
	period, ok := parseDateRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Rentang tanggal tidak valid (format YYYY-MM-DD)")
		return
	}
	reports, err := h.Reports.ListReports(r.Context(), authctx.Actor(r.Context()), status, exportLimit)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	var rows []domain.Report
	for _, rep := range reports {
		if period.contains(rep.DateReported) {
			rows = append(rows, rep)
		}
	}
	h.write(w, r, "laporan", period, reportTable(rows))
}

func (h ExportHandler) write(w http.ResponseWriter, r *http.Request, name string, period dateRange, t table) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	suffix := period.suffix()
	if suffix == "" {
		suffix = now().Format("20060102_150405")
	}
	filename := fmt.Sprintf("%s_%s", name, suffix)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}
	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "csv":
		data, err = t.csv()
		contentType = "text/csv; charset=utf-8"
	case "xlsx", "excel":
		format = "xlsx"
		data, err = t.xlsx()
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		writeError(w, http.StatusBadRequest, "Format tidak valid (gunakan csv atau xlsx)")
		return
	}
	if err != nil {
		writeServiceError(w, r, h.Logger, domain.Storage("export "+name, err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.%s\"", filename, format))
	_, _ = w.Write(data)
}

func applicationTable(apps []domain.PermitApplication) table {
	t := table{
		sheet:  "Pengajuan",
		header: []string{"ID", "Pemilik", "Nama Usaha", "Jenis Usaha", "Lokasi", "Latitude", "Longitude", "Status", "Tanggal Pengajuan", "Berlaku Hingga"},
		widths: []float64{8, 24, 28, 18, 20, 12, 12, 18, 18, 18},
	}
	for _, a := range apps {
		var label string
		var lat, lng any
		if a.Plot != nil {
			label = derefString(a.Plot.Label)
			lat, lng = a.Plot.Latitude, a.Plot.Longitude
		}
		expired := ""
		if a.DateExpired != nil {
			expired = a.DateExpired.Format("2006-01-02")
		}
		t.rows = append(t.rows, []any{
			a.ID, a.OwnerName, a.BusinessName, a.BusinessType, label, lat, lng,
			string(a.Status), a.DateApplied.Format("2006-01-02"), expired,
		})
	}
	return t
}

func reportTable(reports []domain.Report) table {
	t := table{
		sheet:  "Laporan",
		header: []string{"ID", "Jenis", "Deskripsi", "Latitude", "Longitude", "Status", "Admin", "Tanggal Laporan", "Foto"},
		widths: []float64{8, 18, 40, 12, 12, 14, 10, 18, 36},
	}
	for _, rep := range reports {
		handler := ""
		if rep.AdminHandlerID != nil {
			handler = strconv.FormatInt(*rep.AdminHandlerID, 10)
		}
		t.rows = append(t.rows, []any{
			rep.ID, rep.ReportType, rep.Description, rep.Latitude, rep.Longitude,
			string(rep.Status), handler, rep.DateReported.Format("2006-01-02 15:04"), rep.PhotoURL,
		})
	}
	return t
}

func (t table) csv() ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write(t.header)
	for _, row := range t.rows {
		rec := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				rec[i] = fmt.Sprint(v)
			}
		}
		_ = w.Write(rec)
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (t table) xlsx() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(t.sheet)
	if err != nil {
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for c, v := range t.header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(t.sheet, cell, v)
	}
	for r, row := range t.rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(t.sheet, cell, v)
		}
	}
	for c, width := range t.widths {
		col, _ := excelize.ColumnNumberToName(c + 1)
		_ = f.SetColWidth(t.sheet, col, col, width)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	last, _ := excelize.CoordinatesToCellName(len(t.header), 1)
	_ = f.SetCellStyle(t.sheet, "A1", last, style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
