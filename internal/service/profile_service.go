package service

import (
	"context"
	"log/slog"

	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/ports"
	"lokasi-umkm-backend/internal/storage"
)

const msgUserNotFound = "Pengguna tidak ditemukan"

// ProfileService covers a user's own profile and admin account management.
type ProfileService struct {
	Users        ports.UserStore
	Files        ports.FileStore
	Logger       *slog.Logger
	MaxPhotoSize int64
}

func (s ProfileService) GetProfile(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	if actor.IsAnonymous() {
		return nil, domain.Unauthorized("Silakan login terlebih dahulu")
	}
	u, err := s.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr("get profile", err, msgUserNotFound)
	}
	return u, nil
}

func (s ProfileService) UpdateProfile(ctx context.Context, actor domain.Actor, name string, phone *string) (*domain.User, error) {
	if actor.IsAnonymous() {
		return nil, domain.Unauthorized("Silakan login terlebih dahulu")
	}
	name, err := required(name, "Nama wajib diisi")
	if err != nil {
		return nil, err
	}
	p, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.UpdateProfile(ctx, actor.ID, name, p)
	if err != nil {
		return nil, storeErr("update profile", err, msgUserNotFound)
	}
	return u, nil
}

// UploadPhoto replaces the actor's profile photo. The previous file is removed
// once the new one is recorded.
func (s ProfileService) UploadPhoto(ctx context.Context, actor domain.Actor, up *storage.Upload) (*domain.User, error) {
	if actor.IsAnonymous() {
		return nil, domain.Unauthorized("Silakan login terlebih dahulu")
	}
	checked, err := checkUpload(up, s.MaxPhotoSize, acceptImage, "foto", "Foto wajib diunggah")
	if err != nil {
		return nil, err
	}
	u, err := s.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr("get profile", err, msgUserNotFound)
	}

	ref, err := s.Files.Save("profiles", checked)
	if err != nil {
		return nil, domain.Storage("save profile photo", err)
	}
	if err := s.Users.UpdatePhoto(ctx, u.ID, ref); err != nil {
		s.deleteFile(ref)
		return nil, storeErr("update profile photo", err, msgUserNotFound)
	}
	if u.PhotoURL != nil {
		s.deleteFile(*u.PhotoURL)
	}
	u.PhotoURL = &ref
	return u, nil
}

func (s ProfileService) ListUsers(ctx context.Context, actor domain.Actor, role *domain.UserRole, limit int) ([]domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Hanya admin yang dapat melihat daftar pengguna")
	}
	users, err := s.Users.List(ctx, role, limit)
	if err != nil {
		return nil, storeErr("list users", err, "")
	}
	return users, nil
}

// SetUserActive enables or disables an account. Admins cannot disable
// themselves.
func (s ProfileService) SetUserActive(ctx context.Context, actor domain.Actor, id int64, active bool) error {
	if !actor.IsAdmin() {
		return domain.Forbidden("Hanya admin yang dapat mengubah status akun")
	}
	if id == actor.ID && !active {
		return domain.PreconditionFailed("Tidak dapat menonaktifkan akun sendiri")
	}
	if err := s.Users.SetActive(ctx, id, active); err != nil {
		return storeErr("set user active", err, msgUserNotFound)
	}
	s.logger().Info("user active changed", "user_id", id, "active", active, "admin_id", actor.ID)
	return nil
}

func (s ProfileService) deleteFile(ref string) {
	if err := s.Files.Delete(ref); err != nil {
		s.logger().Warn("delete profile photo", "ref", ref, "err", err)
	}
}

func (s ProfileService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
