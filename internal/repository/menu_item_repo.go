package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MenuItemRepository defines data access for menu items
type MenuItemRepository interface {
	Create(ctx context.Context, item *model.MenuItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.MenuItem, error)
	List(ctx context.Context, page, limit int, search string) ([]model.MenuItem, int64, error)
	ListPublic(ctx context.Context, categoryID *uuid.UUID) ([]model.MenuItem, error)
	Update(ctx context.Context, item *model.MenuItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type menuItemRepository struct {
	db *gorm.DB
}

func NewMenuItemRepository(db *gorm.DB) MenuItemRepository {
	return &menuItemRepository{db: db}
}

func (r *menuItemRepository) Create(ctx context.Context, item *model.MenuItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *menuItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := GetDB(ctx, r.db).
		Preload("Category").
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// List is the staff view: every row regardless of flags, paginated
func (r *menuItemRepository) List(ctx context.Context, page, limit int, search string) ([]model.MenuItem, int64, error) {
	var items []model.MenuItem
	var total int64

	db := GetDB(ctx, r.db).Model(&model.MenuItem{})
	if search != "" {
		db = db.Where("name ILIKE ?", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Category").
		Order("name ASC").
		Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// ListPublic is the anonymous read path: only active AND available rows
func (r *menuItemRepository) ListPublic(ctx context.Context, categoryID *uuid.UUID) ([]model.MenuItem, error) {
	var items []model.MenuItem
	db := GetDB(ctx, r.db).
		Where("is_active = ? AND is_available = ?", true, true)
	if categoryID != nil {
		db = db.Where("category_id = ?", *categoryID)
	}
	if err := db.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *menuItemRepository) Update(ctx context.Context, item *model.MenuItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *menuItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.MenuItem{}).Error
}
