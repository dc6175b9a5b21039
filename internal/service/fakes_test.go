package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/repository"
	"lokasi-umkm-backend/internal/storage"
)

var errBoom = errors.New("boom")

// memDB is an in-memory stand-in for Postgres. WithTx snapshots every table and
// restores it when fn fails, so tests observe rollback.
type memDB struct {
	nextID    int64
	users     map[int64]domain.User
	plots     map[int64]domain.Plot
	permits   map[int64]domain.PermitApplication
	docs      map[int64]domain.Document
	deletions map[int64]domain.DeletionRequest
	reports   map[int64]domain.Report
	notes     map[int64]domain.Notification
	tokens    []repository.RegisterTokenInput

	// fail makes the named operation return errBoom.
	fail map[string]bool
	txs  int
}

func newMemDB() *memDB {
	return &memDB{
		users:     map[int64]domain.User{},
		plots:     map[int64]domain.Plot{},
		permits:   map[int64]domain.PermitApplication{},
		docs:      map[int64]domain.Document{},
		deletions: map[int64]domain.DeletionRequest{},
		reports:   map[int64]domain.Report{},
		notes:     map[int64]domain.Notification{},
		fail:      map[string]bool{},
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memDB) check(op string) error {
	if m.fail[op] {
		return errBoom
	}
	return nil
}

func (m *memDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txs++
	users, plots, permits := maps.Clone(m.users), maps.Clone(m.plots), maps.Clone(m.permits)
	docs, deletions, reports := maps.Clone(m.docs), maps.Clone(m.deletions), maps.Clone(m.reports)
	if err := fn(ctx); err != nil {
		m.users, m.plots, m.permits = users, plots, permits
		m.docs, m.deletions, m.reports = docs, deletions, reports
		return err
	}
	return nil
}

// users

type memUsers struct{ db *memDB }

func (s memUsers) Create(_ context.Context, p repository.CreateUserParams) (*domain.User, error) {
	if err := s.db.check("users.create"); err != nil {
		return nil, err
	}
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, p.Email) || u.NIK == p.NIK {
			return nil, &pgconn.PgError{Code: "23505", ConstraintName: dupConstraint(u, p)}
		}
	}
	u := domain.User{
		ID: s.db.id(), Email: p.Email, PasswordHash: p.PasswordHash, Role: p.Role,
		IsActive: true, Name: p.Name, NIK: p.NIK, Phone: p.Phone,
	}
	s.db.users[u.ID] = u
	return &u, nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s memUsers) List(_ context.Context, role *domain.UserRole, limit int) ([]domain.User, error) {
	var out []domain.User
	for _, id := range sortedKeys(s.db.users) {
		u := s.db.users[id]
		if role != nil && u.Role != *role {
			continue
		}
		out = append(out, u)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memUsers) ActiveAdminIDs(context.Context) ([]int64, error) {
	if err := s.db.check("users.admins"); err != nil {
		return nil, err
	}
	var ids []int64
	for _, id := range sortedKeys(s.db.users) {
		u := s.db.users[id]
		if u.Role == domain.RoleAdmin && u.IsActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s memUsers) UpdateProfile(_ context.Context, id int64, name string, phone *string) (*domain.User, error) {
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Name, u.Phone = name, phone
	s.db.users[id] = u
	return &u, nil
}

func (s memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	s.db.users[id] = u
	return nil
}

func (s memUsers) UpdatePhoto(_ context.Context, id int64, url string) error {
	if err := s.db.check("users.photo"); err != nil {
		return err
	}
	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PhotoURL = &url
	s.db.users[id] = u
	return nil
}

func (s memUsers) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = active
	s.db.users[id] = u
	return nil
}

func dupConstraint(u domain.User, p repository.CreateUserParams) string {
	if u.NIK == p.NIK {
		return "users_nik_key"
	}
	return "users_email_key"
}

// plots

type memPlots struct{ db *memDB }

func (s memPlots) Create(_ context.Context, p repository.CreatePlotParams) (*domain.Plot, error) {
	if err := s.db.check("plots.create"); err != nil {
		return nil, err
	}
	pl := domain.Plot{
		ID: s.db.id(), Latitude: p.Latitude, Longitude: p.Longitude, Status: p.Status,
		RestrictionReason: p.RestrictionReason, Label: p.Label,
	}
	s.db.plots[pl.ID] = pl
	return &pl, nil
}

func (s memPlots) Get(_ context.Context, id int64) (*domain.Plot, error) {
	p, ok := s.db.plots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s memPlots) GetForUpdate(ctx context.Context, id int64) (*domain.Plot, error) {
	return s.Get(ctx, id)
}

func (s memPlots) List(_ context.Context, status *domain.PlotStatus) ([]domain.Plot, error) {
	var out []domain.Plot
	for _, id := range sortedKeys(s.db.plots) {
		p := s.db.plots[id]
		if status == nil || p.Status == *status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s memPlots) Update(_ context.Context, p domain.Plot) (*domain.Plot, error) {
	if _, ok := s.db.plots[p.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	s.db.plots[p.ID] = p
	return &p, nil
}

func (s memPlots) SetStatus(_ context.Context, id int64, status domain.PlotStatus) error {
	if err := s.db.check("plots.status"); err != nil {
		return err
	}
	p, ok := s.db.plots[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	if status != domain.PlotRestricted {
		p.RestrictionReason = nil
	}
	s.db.plots[id] = p
	return nil
}

func (s memPlots) Delete(_ context.Context, id int64) error {
	if _, ok := s.db.plots[id]; !ok {
		return repository.ErrNotFound
	}
	if err := s.db.check("plots.delete"); err != nil {
		return err
	}
	delete(s.db.plots, id)
	for aid, a := range s.db.permits {
		if a.PlotID == id {
			_ = memPermits{s.db}.Delete(context.Background(), aid)
		}
	}
	return nil
}

// permits

type memPermits struct{ db *memDB }

func (s memPermits) Create(_ context.Context, p repository.CreatePermitParams) (*domain.PermitApplication, error) {
	if err := s.db.check("permits.create"); err != nil {
		return nil, err
	}
	a := domain.PermitApplication{
		ID: s.db.id(), UserID: p.UserID, PlotID: p.PlotID, BusinessName: p.BusinessName,
		BusinessType: p.BusinessType, Status: domain.PermitSubmitted, DateApplied: p.AppliedAt,
	}
	s.db.permits[a.ID] = a
	return &a, nil
}

func (s memPermits) Get(_ context.Context, id int64) (*domain.PermitApplication, error) {
	a, ok := s.db.permits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s memPermits) GetForUpdate(ctx context.Context, id int64) (*domain.PermitApplication, error) {
	return s.Get(ctx, id)
}

func (s memPermits) List(_ context.Context, f repository.PermitFilter) ([]domain.PermitApplication, error) {
	var out []domain.PermitApplication
	for _, id := range sortedKeys(s.db.permits) {
		a := s.db.permits[id]
		if f.UserID != nil && a.UserID != *f.UserID {
			continue
		}
		if f.PlotID != nil && a.PlotID != *f.PlotID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s memPermits) CountForPlot(_ context.Context, plotID, excludeID int64, statuses ...domain.PermitStatus) (int, error) {
	n := 0
	for _, a := range s.db.permits {
		if a.PlotID != plotID || a.ID == excludeID {
			continue
		}
		for _, st := range statuses {
			if a.Status == st {
				n++
				break
			}
		}
	}
	return n, nil
}

func (s memPermits) UpdateDetails(_ context.Context, id int64, name, businessType string, status domain.PermitStatus) error {
	a, ok := s.db.permits[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.BusinessName, a.BusinessType, a.Status = name, businessType, status
	s.db.permits[id] = a
	return nil
}

func (s memPermits) SetStatus(_ context.Context, id int64, p repository.SetPermitStatusParams) error {
	if err := s.db.check("permits.status"); err != nil {
		return err
	}
	a, ok := s.db.permits[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = p.Status
	if p.DecidedAt != nil {
		a.DecidedAt = p.DecidedAt
	}
	a.DateExpired = p.DateExpired
	s.db.permits[id] = a
	return nil
}

func (s memPermits) Delete(_ context.Context, id int64) error {
	if _, ok := s.db.permits[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.permits, id)
	for did, d := range s.db.docs {
		if d.ApplicationID == id {
			delete(s.db.docs, did)
		}
	}
	for rid, r := range s.db.deletions {
		if r.ApplicationID == id {
			r.ApplicationID = 0
			s.db.deletions[rid] = r
		}
	}
	return nil
}

// documents

type memDocs struct{ db *memDB }

func (s memDocs) Create(_ context.Context, p repository.CreateDocumentParams) (*domain.Document, error) {
	if err := s.db.check("docs.create"); err != nil {
		return nil, err
	}
	d := domain.Document{
		ID: s.db.id(), ApplicationID: p.ApplicationID, Kind: p.Kind, FileURL: p.FileURL,
		OriginalName: p.OriginalName, UploadedBy: p.UploadedBy,
	}
	s.db.docs[d.ID] = d
	return &d, nil
}

func (s memDocs) ListByApplication(_ context.Context, applicationID int64) ([]domain.Document, error) {
	var out []domain.Document
	for _, id := range sortedKeys(s.db.docs) {
		if d := s.db.docs[id]; d.ApplicationID == applicationID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s memDocs) ListByPlot(_ context.Context, plotID int64) ([]domain.Document, error) {
	if err := s.db.check("docs.list"); err != nil {
		return nil, err
	}
	var out []domain.Document
	for _, id := range sortedKeys(s.db.docs) {
		d := s.db.docs[id]
		if a, ok := s.db.permits[d.ApplicationID]; ok && a.PlotID == plotID {
			out = append(out, d)
		}
	}
	return out, nil
}

// deletion requests

type memDeletions struct{ db *memDB }

func (s memDeletions) Create(_ context.Context, p repository.CreateDeletionRequestParams) (*domain.DeletionRequest, error) {
	if err := s.db.check("deletions.create"); err != nil {
		return nil, err
	}
	r := domain.DeletionRequest{
		ID: s.db.id(), ApplicationID: p.ApplicationID, UserID: p.UserID, Reason: p.Reason,
		PreviousStatus: p.PreviousStatus, Status: domain.DeletionPending,
	}
	s.db.deletions[r.ID] = r
	return &r, nil
}

func (s memDeletions) GetForUpdate(_ context.Context, id int64) (*domain.DeletionRequest, error) {
	r, ok := s.db.deletions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s memDeletions) List(_ context.Context, status *domain.DeletionRequestStatus) ([]domain.DeletionRequest, error) {
	var out []domain.DeletionRequest
	for _, id := range sortedKeys(s.db.deletions) {
		r := s.db.deletions[id]
		if status == nil || r.Status == *status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s memDeletions) Decide(_ context.Context, id int64, status domain.DeletionRequestStatus, adminID int64, at time.Time) error {
	r, ok := s.db.deletions[id]
	if !ok || r.Status != domain.DeletionPending {
		return repository.ErrNotFound
	}
	r.Status, r.DecidedBy, r.DecidedAt = status, &adminID, &at
	s.db.deletions[id] = r
	return nil
}

func (s memDeletions) CloseForPlot(_ context.Context, plotID, adminID int64, at time.Time) (int64, error) {
	var n int64
	for id, r := range s.db.deletions {
		a, ok := s.db.permits[r.ApplicationID]
		if !ok || a.PlotID != plotID || r.Status != domain.DeletionPending {
			continue
		}
		r.Status, r.DecidedBy, r.DecidedAt = domain.DeletionApproved, &adminID, &at
		s.db.deletions[id] = r
		n++
	}
	return n, nil
}

// reports

type memReports struct{ db *memDB }

func (s memReports) Create(_ context.Context, p repository.CreateReportParams) (*domain.Report, error) {
	if err := s.db.check("reports.create"); err != nil {
		return nil, err
	}
	r := domain.Report{
		ID: s.db.id(), ReportType: p.ReportType, Description: p.Description, Latitude: p.Latitude,
		Longitude: p.Longitude, PhotoURL: p.PhotoURL, Status: domain.ReportUnreviewed, DateReported: p.ReportedAt,
	}
	s.db.reports[r.ID] = r
	return &r, nil
}

func (s memReports) Get(_ context.Context, id int64) (*domain.Report, error) {
	r, ok := s.db.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s memReports) GetForUpdate(ctx context.Context, id int64) (*domain.Report, error) {
	return s.Get(ctx, id)
}

func (s memReports) List(_ context.Context, status *domain.ReportStatus, limit int) ([]domain.Report, error) {
	var out []domain.Report
	for _, id := range sortedKeys(s.db.reports) {
		r := s.db.reports[id]
		if status == nil || r.Status == *status {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memReports) ListUnreminded(_ context.Context, cutoff time.Time, limit int) ([]domain.Report, error) {
	var out []domain.Report
	for _, id := range sortedKeys(s.db.reports) {
		r := s.db.reports[id]
		if r.Status == domain.ReportUnreviewed && r.RemindedAt == nil && !r.DateReported.After(cutoff) {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memReports) MarkReminded(_ context.Context, id int64, at time.Time) error {
	r, ok := s.db.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.RemindedAt = &at
	s.db.reports[id] = r
	return nil
}

func (s memReports) SetStatus(_ context.Context, id int64, status domain.ReportStatus, handler *int64) error {
	r, ok := s.db.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Status, r.AdminHandlerID = status, handler
	s.db.reports[id] = r
	return nil
}

func (s memReports) Delete(_ context.Context, id int64) error {
	if _, ok := s.db.reports[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.reports, id)
	return nil
}

// notifications

type memNotes struct{ db *memDB }

func (s memNotes) Create(_ context.Context, in repository.CreateNotificationInput) (*domain.Notification, error) {
	if err := s.db.check("notes.create"); err != nil {
		return nil, err
	}
	n := domain.Notification{
		ID: s.db.id(), UserID: in.UserID, Type: in.Type, Title: in.Title, Message: in.Message,
		Link: in.Link, ReferenceID: in.ReferenceID,
	}
	s.db.notes[n.ID] = n
	return &n, nil
}

func (s memNotes) List(_ context.Context, userID int64, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, id := range sortedKeys(s.db.notes) {
		if n := s.db.notes[id]; n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s memNotes) CountUnread(_ context.Context, userID int64) (int, error) {
	c := 0
	for _, n := range s.db.notes {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (s memNotes) MarkRead(_ context.Context, userID, id int64) error {
	n, ok := s.db.notes[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.IsRead = true
	s.db.notes[id] = n
	return nil
}

func (s memNotes) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var c int64
	for id, n := range s.db.notes {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			s.db.notes[id] = n
			c++
		}
	}
	return c, nil
}

func (s memNotes) Delete(_ context.Context, userID, id int64) error {
	n, ok := s.db.notes[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.db.notes, id)
	return nil
}

// notesFor returns the notifications of userID with type t.
func (m *memDB) notesFor(userID int64, t domain.NotificationType) []domain.Notification {
	var out []domain.Notification
	for _, id := range sortedKeys(m.notes) {
		if n := m.notes[id]; n.UserID == userID && n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// files

type memFiles struct {
	saved      map[string][]byte
	deleted    []string
	failSave   bool
	failDelete bool
	n          int
}

func newMemFiles() *memFiles { return &memFiles{saved: map[string][]byte{}} }

func (f *memFiles) Save(category string, up storage.Upload) (string, error) {
	if f.failSave {
		return "", errBoom
	}
	b, err := io.ReadAll(up.Content)
	if err != nil {
		return "", err
	}
	f.n++
	ref := "/uploads/" + category + "/" + strings.Repeat("f", f.n) + strings.ToLower(extOf(up.Filename))
	f.saved[ref] = b
	return ref, nil
}

func (f *memFiles) Delete(ref string) error {
	f.deleted = append(f.deleted, ref)
	if f.failDelete {
		return errBoom
	}
	delete(f.saved, ref)
	return nil
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// fixtures

var (
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	pdfHeader  = []byte("%PDF-1.4\n")
)

func jpegUpload(size int64) *storage.Upload {
	body := append(append([]byte{}, jpegHeader...), bytes.Repeat([]byte{0}, 64)...)
	return &storage.Upload{Filename: "bukti.jpg", Size: size, Content: bytes.NewReader(body)}
}

func pdfUpload() *storage.Upload {
	body := append(append([]byte{}, pdfHeader...), []byte("1 0 obj\n<<>>\nendobj\n")...)
	return &storage.Upload{Filename: "ktp.pdf", Size: int64(len(body)), Content: bytes.NewReader(body)}
}

func textUpload() *storage.Upload {
	body := []byte("just some plain text, not an image")
	return &storage.Upload{Filename: "bukti.jpg", Size: int64(len(body)), Content: bytes.NewReader(body)}
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// env wires every service to one memDB.
type env struct {
	db      *memDB
	files   *memFiles
	clock   *fixedClock
	notify  *Notifier
	plots   PlotService
	permits PermitService
	reports ReportService
	profile ProfileService
	auth    AuthService

	admin domain.Actor
	owner domain.Actor
	other domain.Actor
}

func newEnv() *env {
	db := newMemDB()
	files := newMemFiles()
	clock := &fixedClock{t: testNow}
	n := &Notifier{Store: memNotes{db}, Admins: memUsers{db}}

	e := &env{db: db, files: files, clock: clock, notify: n}
	e.plots = PlotService{
		Tx: db, Plots: memPlots{db}, Permits: memPermits{db}, Documents: memDocs{db},
		Deletions: memDeletions{db}, Files: files, Clock: clock.Now,
	}
	e.permits = PermitService{
		Tx: db, Plots: memPlots{db}, Permits: memPermits{db}, Documents: memDocs{db},
		Deletions: memDeletions{db}, Files: files, Notifier: n,
		PermitValidity: 365 * 24 * time.Hour, MaxFileSize: 5 << 20, Clock: clock.Now,
	}
	e.reports = ReportService{
		Tx: db, Reports: memReports{db}, Files: files, Notifier: n,
		MaxPhotoSize: 5 << 20, Clock: clock.Now,
	}
	e.profile = ProfileService{Users: memUsers{db}, Files: files, MaxPhotoSize: 5 << 20}
	e.auth = AuthService{Users: memUsers{db}, JWTSecret: "test-secret", TokenTTL: time.Hour}

	e.admin = e.addUser(domain.RoleAdmin, "Admin Kota", "admin@kota.go.id")
	e.owner = e.addUser(domain.RoleUMKM, "Siti", "siti@example.com")
	e.other = e.addUser(domain.RoleUMKM, "Budi", "budi@example.com")
	return e
}

func (e *env) addUser(role domain.UserRole, name, email string) domain.Actor {
	u := domain.User{ID: e.db.id(), Email: email, Role: role, IsActive: true, Name: name}
	e.db.users[u.ID] = u
	return domain.Actor{ID: u.ID, Email: email, Name: name, Role: role}
}

func (e *env) addPlot(status domain.PlotStatus) int64 {
	p := domain.Plot{ID: e.db.id(), Latitude: -6.9, Longitude: 107.6, Status: status}
	e.db.plots[p.ID] = p
	return p.ID
}

func (e *env) addApplication(owner domain.Actor, plotID int64, status domain.PermitStatus) int64 {
	a := domain.PermitApplication{
		ID: e.db.id(), UserID: owner.ID, PlotID: plotID, BusinessName: "Warung " + owner.Name,
		BusinessType: "kuliner", Status: status, DateApplied: testNow,
	}
	e.db.permits[a.ID] = a
	return a.ID
}

func (e *env) addReport(status domain.ReportStatus, handler *int64, reported time.Time) int64 {
	r := domain.Report{
		ID: e.db.id(), ReportType: "pkl_liar", Description: "Lapak di trotoar", Latitude: -6.9,
		Longitude: 107.6, PhotoURL: "/uploads/reports/seed.jpg", Status: status,
		AdminHandlerID: handler, DateReported: reported,
	}
	e.db.reports[r.ID] = r
	e.files.saved[r.PhotoURL] = jpegHeader
	return r.ID
}

func ctxBG() context.Context { return context.Background() }
