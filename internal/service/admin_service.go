package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/repository"
)

// AdminService handles authoring account business logic.
type AdminService struct {
	adminRepo *repository.AdminRepository
	auth      *AuthService
}

// NewAdminService creates a new AdminService.
func NewAdminService(adminRepo *repository.AdminRepository, auth *AuthService) *AdminService {
	return &AdminService{adminRepo: adminRepo, auth: auth}
}

// Login verifies admin credentials and issues an admin token.
func (s *AdminService) Login(ctx context.Context, email, password string) (string, *model.Admin, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get admin: %w", err)
	}

	if err := s.auth.CheckPassword(admin.PasswordHash, password); err != nil {
		return "", nil, err
	}

	token, err := s.auth.GenerateAdminToken(admin.ID)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

// ResetUserLogin force-logs-out an examinee so they can log in again.
func (s *AdminService) ResetUserLogin(ctx context.Context, userID int) error {
	return s.auth.ResetUserLogin(ctx, userID)
}
