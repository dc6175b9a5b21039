package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/ports"
	"lokasi-umkm-backend/internal/repository"
)

var ErrInvalidToken = errors.New("invalid token")

const msgBadCredentials = "Email atau password salah"

type AuthService struct {
	Users     ports.UserStore
	Logger    *slog.Logger
	JWTSecret string
	TokenTTL  time.Duration
	Clock     func() time.Time
}

type AuthResult struct {
	AccessToken string
	User        domain.User
	ExpiresAt   time.Time
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	NIK      string
	Phone    *string
}

type LoginInput struct {
	Email    string
	Password string
}

// Register creates a business owner account and signs it in.
func (s AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := s.createUser(ctx, in, domain.RoleUMKM)
	if err != nil {
		return nil, err
	}
	s.logger().Info("user registered", "user_id", user.ID, "role", user.Role)
	return s.issueToken(user)
}

// CreateAdmin provisions an administrator account.
func (s AuthService) CreateAdmin(ctx context.Context, in RegisterInput) (*domain.User, error) {
	return s.createUser(ctx, in, domain.RoleAdmin)
}

func (s AuthService) createUser(ctx context.Context, in RegisterInput, role domain.UserRole) (*domain.User, error) {
	name, err := required(in.Name, "Nama wajib diisi")
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	nik := strings.TrimSpace(in.NIK)
	if err := validateNIK(nik); err != nil {
		return nil, err
	}
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.Users.Create(ctx, repository.CreateUserParams{
		Name:         name,
		Email:        email,
		NIK:          nik,
		Phone:        phone,
		Role:         role,
		PasswordHash: string(hash),
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			if repository.DuplicateConstraint(err) == "users_nik_key" {
				return nil, domain.Conflict("NIK sudah terdaftar")
			}
			return nil, domain.Conflict("Email sudah terdaftar")
		}
		return nil, storeErr("create user", err, "")
	}
	return user, nil
}

// Login verifies credentials. Deactivated accounts are refused even with the
// right password.
func (s AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, domain.Validation("Email dan password wajib diisi")
	}
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized(msgBadCredentials)
		}
		return nil, storeErr("load user", err, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.Unauthorized(msgBadCredentials)
	}
	if !user.IsActive {
		return nil, domain.Forbidden("Akun tidak aktif")
	}
	return s.issueToken(user)
}

// ChangePassword replaces the actor's password after checking the current one.
func (s AuthService) ChangePassword(ctx context.Context, actor domain.Actor, current, next string) error {
	if actor.IsAnonymous() {
		return domain.Unauthorized("Silakan login terlebih dahulu")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	user, err := s.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return storeErr("load user", err, "Pengguna tidak ditemukan")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return domain.Validation("Password saat ini salah")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return storeErr("update password", err, "Pengguna tidak ditemukan")
	}
	s.logger().Info("password changed", "user_id", user.ID)
	return nil
}

// ParseToken validates an access token and returns the actor it was issued to.
func (s AuthService) ParseToken(raw string) (domain.Actor, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["token_type"] != "access" {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return domain.Actor{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	name, _ := claims["nama"].(string)
	return domain.Actor{ID: id, Email: email, Name: name, Role: domain.UserRole(role)}, nil
}

func (s AuthService) issueToken(user *domain.User) (*AuthResult, error) {
	now := clockOrNow(s.Clock)
	exp := now.Add(s.TokenTTL)

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        strconv.FormatInt(user.ID, 10),
		"email":      user.Email,
		"role":       string(user.Role),
		"nama":       user.Name,
		"token_type": "access",
		"exp":        exp.Unix(),
		"iat":        now.Unix(),
	}).SignedString([]byte(s.JWTSecret))
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: access, User: *user, ExpiresAt: exp}, nil
}

func (s AuthService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
