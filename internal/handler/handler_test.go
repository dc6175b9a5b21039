package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/ports"
	"lokasi-umkm-backend/internal/repository"
	"lokasi-umkm-backend/internal/server/authctx"
)

// txFunc runs fn directly; the plot handler tests do not need rollback.
type txFunc struct{}

func (txFunc) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type memPlotStore struct {
	plots map[int64]domain.Plot
	next  int64
}

func newMemPlotStore() *memPlotStore { return &memPlotStore{plots: map[int64]domain.Plot{}} }

func (s *memPlotStore) Create(_ context.Context, p repository.CreatePlotParams) (*domain.Plot, error) {
	s.next++
	pl := domain.Plot{ID: s.next, Latitude: p.Latitude, Longitude: p.Longitude, Status: p.Status, RestrictionReason: p.RestrictionReason, Label: p.Label}
	s.plots[pl.ID] = pl
	return &pl, nil
}

func (s *memPlotStore) Get(_ context.Context, id int64) (*domain.Plot, error) {
	p, ok := s.plots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *memPlotStore) GetForUpdate(ctx context.Context, id int64) (*domain.Plot, error) {
	return s.Get(ctx, id)
}

func (s *memPlotStore) List(_ context.Context, status *domain.PlotStatus) ([]domain.Plot, error) {
	var out []domain.Plot
	for id := int64(1); id <= s.next; id++ {
		if p, ok := s.plots[id]; ok && (status == nil || p.Status == *status) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memPlotStore) Update(_ context.Context, p domain.Plot) (*domain.Plot, error) {
	s.plots[p.ID] = p
	return &p, nil
}

func (s *memPlotStore) SetStatus(_ context.Context, id int64, status domain.PlotStatus) error {
	p := s.plots[id]
	p.Status = status
	s.plots[id] = p
	return nil
}

func (s *memPlotStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.plots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.plots, id)
	return nil
}

// noPermits reports no competing applications. Other methods are unused.
type noPermits struct{ ports.PermitStore }

func (noPermits) CountForPlot(context.Context, int64, int64, ...domain.PermitStatus) (int, error) {
	return 0, nil
}

type memNotifications struct {
	items  map[int64]domain.Notification
	tokens []repository.RegisterTokenInput
	err    error
}

func (s *memNotifications) Create(_ context.Context, in repository.CreateNotificationInput) (*domain.Notification, error) {
	n := domain.Notification{ID: int64(len(s.items) + 1), UserID: in.UserID, Type: in.Type, Title: in.Title, Message: in.Message}
	s.items[n.ID] = n
	return &n, nil
}

func (s *memNotifications) List(_ context.Context, userID int64, _ int) ([]domain.Notification, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Notification
	for id := int64(1); id <= int64(len(s.items)); id++ {
		if n, ok := s.items[id]; ok && n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memNotifications) CountUnread(_ context.Context, userID int64) (int, error) {
	c := 0
	for _, n := range s.items {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (s *memNotifications) MarkRead(_ context.Context, userID, id int64) error {
	n, ok := s.items[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.IsRead = true
	s.items[id] = n
	return nil
}

func (s *memNotifications) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var c int64
	for id, n := range s.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			s.items[id] = n
			c++
		}
	}
	return c, nil
}

func (s *memNotifications) Delete(_ context.Context, userID, id int64) error {
	n, ok := s.items[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *memNotifications) Register(_ context.Context, in repository.RegisterTokenInput) error {
	s.tokens = append(s.tokens, in)
	return nil
}

var (
	adminActor = domain.Actor{ID: 1, Role: domain.RoleAdmin, Name: "Admin"}
	ownerActor = domain.Actor{ID: 2, Role: domain.RoleUMKM, Name: "Siti"}
	otherActor = domain.Actor{ID: 3, Role: domain.RoleUMKM, Name: "Budi"}
)

// serve routes req through register with actor injected the way the auth
// middleware would.
func serve(t *testing.T, register func(chi.Router), actor domain.Actor, method, target string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authctx.WithActor(req.Context(), actor)))
		})
	})
	register(r)

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

var errBoom = errors.New("boom")
