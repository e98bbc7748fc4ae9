package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// UserResponse returns a user without exposing sensitive data
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

const refreshTokenTTL = 7 * 24 * time.Hour

// UserService defines the interface for authentication, provisioning and
// user administration
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUserRole(ctx context.Context, actorID, id string, req UpdateUserRoleRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actorID, id string) error
}

type userService struct {
	repo      repository.UserRepository
	tokenRepo repository.TokenRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

// NewUserService returns a new instance of UserService
func NewUserService(
	repo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) UserService {
	return &userService{
		repo:      repo,
		tokenRepo: tokenRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

// Helper: parse model to standard json API response
func mapToUserResponse(user *model.User) *UserResponse {
	fullName := ""
	if user.Profile != nil {
		fullName = user.Profile.FullName
	}
	return &UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		FullName:  fullName,
		Role:      user.PrimaryRole(),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

// Register provisions a new identity: user, profile and role assignment are
// inserted in one transaction. The first identity ever created becomes
// admin, everyone after it staff. The table lock serializes two concurrent
// first signups so exactly one of them wins the admin seat.
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Email:    req.Email,
		Password: string(hashedPassword),
	}

	var assignedRole string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockForProvisioning(txCtx); err != nil {
			return fmt.Errorf("failed to lock users table: %w", err)
		}

		total, err := s.repo.Count(txCtx)
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}

		assignedRole = model.RoleStaff
		if total == 0 {
			assignedRole = model.RoleAdmin
		}

		if err := s.repo.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		profile := &model.Profile{
			UserID:   user.ID,
			Email:    req.Email,
			FullName: req.FullName,
		}
		if err := s.repo.CreateProfile(txCtx, profile); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		user.Profile = profile

		assignment := &model.UserRole{
			UserID: user.ID,
			Role:   assignedRole,
		}
		if err := s.repo.AssignRole(txCtx, assignment); err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}
		user.Roles = []model.UserRole{*assignment}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return mapToUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	stored, err := s.tokenRepo.GetByToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	if time.Now().After(stored.ExpiresAt) {
		_ = s.tokenRepo.Delete(ctx, stored.Token)
		return nil, errors.New("refresh token expired")
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	// Rotate: the presented token is consumed, a fresh one replaces it
	if err := s.tokenRepo.Delete(ctx, stored.Token); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokenRepo.Delete(ctx, refreshToken)
}

// issueTokens generates a signed access JWT plus a stored refresh token
func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	role := user.PrimaryRole()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})

	// Same secret resolution as the verifying middleware, including the
	// release-mode requirement that JWT_SECRET is set
	tokenString, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.New("failed to generate refresh token")
	}
	refresh := hex.EncodeToString(raw)

	if err := s.tokenRepo.Create(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{Token: tokenString, RefreshToken: refresh}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.New("user not found")
	}
	return mapToUserResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*UserResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	if user.Profile == nil {
		return nil, errors.New("profile not found")
	}

	user.Profile.FullName = req.FullName
	if err := s.repo.UpdateProfile(ctx, user.Profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return mapToUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToUserResponse(&users[i]))
	}

	return responses, total, nil
}

func (s *userService) UpdateUserRole(ctx context.Context, actorID, id string, req UpdateUserRoleRequest) (*UserResponse, error) {
	if !model.ValidRole(req.Role) {
		return nil, errors.New("invalid role: must be admin or staff")
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if actorID == id && req.Role != model.RoleAdmin {
		return nil, errors.New("admins cannot demote themselves")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.ReplaceRole(txCtx, userID, req.Role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(actorID); err == nil {
			uid = &parsed
		}

		details, _ := json.Marshal(map[string]string{"role": req.Role})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionUpdateUserRole,
			EntityID:   user.ID.String(),
			EntityName: user.Email,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.Roles = []model.UserRole{{UserID: userID, Role: req.Role}}
	return mapToUserResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return errors.New("admins cannot delete themselves")
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("user not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, userID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(actorID); err == nil {
			uid = &parsed
		}

		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionDeleteUser,
			EntityID:   user.ID.String(),
			EntityName: user.Email,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}
