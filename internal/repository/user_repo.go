package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
// and their profile/role rows
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	CreateProfile(ctx context.Context, profile *model.Profile) error
	AssignRole(ctx context.Context, role *model.UserRole) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Count(ctx context.Context) (int64, error)
	LockForProvisioning(ctx context.Context) error
	List(ctx context.Context, page, limit int) ([]model.User, int64, error)
	UpdateProfile(ctx context.Context, profile *model.Profile) error
	ReplaceRole(ctx context.Context, userID uuid.UUID, role string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) CreateProfile(ctx context.Context, profile *model.Profile) error {
	return GetDB(ctx, r.db).Create(profile).Error
}

func (r *userRepository) AssignRole(ctx context.Context, role *model.UserRole) error {
	return GetDB(ctx, r.db).Create(role).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).
		Preload("Profile").
		Preload("Roles").
		First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).
		Preload("Profile").
		Preload("Roles").
		First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.User{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// LockForProvisioning serializes concurrent registrations so that the
// count-then-assign-role step cannot race. Must run inside a transaction.
func (r *userRepository) LockForProvisioning(ctx context.Context) error {
	return GetDB(ctx, r.db).Exec("LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE").Error
}

func (r *userRepository) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Profile").
		Preload("Roles").
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	return GetDB(ctx, r.db).Save(profile).Error
}

// ReplaceRole swaps every role assignment of the user for the given role
func (r *userRepository) ReplaceRole(ctx context.Context, userID uuid.UUID, role string) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("user_id = ?", userID).Delete(&model.UserRole{}).Error; err != nil {
		return err
	}
	return db.Create(&model.UserRole{UserID: userID, Role: role}).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.User{}).Error
}
