package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateCategoryRequest struct {
	Name         string `json:"name" binding:"required"`
	DisplayOrder int    `json:"display_order"`
}

type UpdateCategoryRequest struct {
	Name         string `json:"name" binding:"required"`
	DisplayOrder int    `json:"display_order"`
	IsActive     *bool  `json:"is_active"`
}

type CreateMenuItemRequest struct {
	CategoryID  string   `json:"category_id"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       string   `json:"price" binding:"required"`
	Allergens   []string `json:"allergens"`
}

type UpdateMenuItemRequest struct {
	CategoryID  string   `json:"category_id"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       string   `json:"price" binding:"required"`
	IsActive    *bool    `json:"is_active"`
	Allergens   []string `json:"allergens"`
}

type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

type CategoryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

type MenuItemResponse struct {
	ID           string   `json:"id"`
	CategoryID   string   `json:"category_id,omitempty"`
	CategoryName string   `json:"category_name,omitempty"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        string   `json:"price"`
	IsActive     bool     `json:"is_active"`
	IsAvailable  bool     `json:"is_available"`
	Allergens    []string `json:"allergens"`
}

// CatalogService covers categories and menu items, in both the public
// (filtered) and staff (unfiltered) views
type CatalogService interface {
	ListPublicCategories(ctx context.Context) ([]CategoryResponse, error)
	ListPublicMenuItems(ctx context.Context, categoryID string) ([]MenuItemResponse, error)

	ListCategories(ctx context.Context) ([]CategoryResponse, error)
	CreateCategory(ctx context.Context, userID string, req CreateCategoryRequest) (CategoryResponse, error)
	UpdateCategory(ctx context.Context, userID, id string, req UpdateCategoryRequest) (CategoryResponse, error)
	DeleteCategory(ctx context.Context, userID, id string) error

	ListMenuItems(ctx context.Context, page, limit int, search string) ([]MenuItemResponse, int64, error)
	GetMenuItem(ctx context.Context, id string) (MenuItemResponse, error)
	CreateMenuItem(ctx context.Context, userID string, req CreateMenuItemRequest) (MenuItemResponse, error)
	UpdateMenuItem(ctx context.Context, userID, id string, req UpdateMenuItemRequest) (MenuItemResponse, error)
	SetAvailability(ctx context.Context, userID, id string, req SetAvailabilityRequest) (MenuItemResponse, error)
	DeleteMenuItem(ctx context.Context, userID, id string) error
}

type catalogService struct {
	categoryRepo repository.CategoryRepository
	itemRepo     repository.MenuItemRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	itemRepo repository.MenuItemRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CatalogService {
	return &catalogService{
		categoryRepo: categoryRepo,
		itemRepo:     itemRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func mapCategory(c model.Category) CategoryResponse {
	return CategoryResponse{
		ID:           c.ID.String(),
		Name:         c.Name,
		DisplayOrder: c.DisplayOrder,
		IsActive:     c.IsActive,
	}
}

func mapMenuItem(i model.MenuItem) MenuItemResponse {
	res := MenuItemResponse{
		ID:          i.ID.String(),
		Name:        i.Name,
		Description: i.Description,
		Price:       i.Price.StringFixed(2),
		IsActive:    i.IsActive,
		IsAvailable: i.IsAvailable,
		Allergens:   i.Allergens,
	}
	if res.Allergens == nil {
		res.Allergens = []string{}
	}
	if i.CategoryID != nil {
		res.CategoryID = i.CategoryID.String()
	}
	if i.Category != nil {
		res.CategoryName = i.Category.Name
	}
	return res
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price: %w", err)
	}
	if price.IsNegative() {
		return decimal.Zero, errors.New("price must not be negative")
	}
	return price, nil
}

// --- Public reads ---

func (s *catalogService) ListPublicCategories(ctx context.Context) ([]CategoryResponse, error) {
	categories, err := s.categoryRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		res = append(res, mapCategory(c))
	}
	return res, nil
}

func (s *catalogService) ListPublicMenuItems(ctx context.Context, categoryID string) ([]MenuItemResponse, error) {
	var catID *uuid.UUID
	if categoryID != "" {
		parsed, err := uuid.Parse(categoryID)
		if err != nil {
			return nil, fmt.Errorf("invalid category id: %w", err)
		}
		catID = &parsed
	}

	items, err := s.itemRepo.ListPublic(ctx, catID)
	if err != nil {
		return nil, err
	}
	res := make([]MenuItemResponse, 0, len(items))
	for _, i := range items {
		res = append(res, mapMenuItem(i))
	}
	return res, nil
}

// --- Categories (staff) ---

func (s *catalogService) ListCategories(ctx context.Context) ([]CategoryResponse, error) {
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		res = append(res, mapCategory(c))
	}
	return res, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, userID string, req CreateCategoryRequest) (CategoryResponse, error) {
	category := model.Category{
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
		IsActive:     true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.categoryRepo.Create(txCtx, &category); err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		return s.logAction(txCtx, userID, model.ActionCreateCategory, category.ID.String(), category.Name, req)
	})
	if err != nil {
		return CategoryResponse{}, err
	}

	return mapCategory(category), nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, userID, id string, req UpdateCategoryRequest) (CategoryResponse, error) {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return CategoryResponse{}, fmt.Errorf("invalid category id: %w", err)
	}

	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CategoryResponse{}, errors.New("category not found")
		}
		return CategoryResponse{}, fmt.Errorf("database error: %w", err)
	}

	category.Name = req.Name
	category.DisplayOrder = req.DisplayOrder
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.categoryRepo.Update(txCtx, category); err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		return s.logAction(txCtx, userID, model.ActionUpdateCategory, category.ID.String(), category.Name, req)
	})
	if err != nil {
		return CategoryResponse{}, err
	}

	return mapCategory(*category), nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, userID, id string) error {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid category id: %w", err)
	}

	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("category not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	// Hard delete — menu items cascade with the row
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.categoryRepo.Delete(txCtx, categoryID); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return s.logAction(txCtx, userID, model.ActionDeleteCategory, category.ID.String(), category.Name, map[string]bool{"deleted": true})
	})
}

// --- Menu items (staff) ---

func (s *catalogService) ListMenuItems(ctx context.Context, page, limit int, search string) ([]MenuItemResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	items, total, err := s.itemRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]MenuItemResponse, 0, len(items))
	for _, i := range items {
		res = append(res, mapMenuItem(i))
	}
	return res, total, nil
}

func (s *catalogService) GetMenuItem(ctx context.Context, id string) (MenuItemResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return MenuItemResponse{}, fmt.Errorf("invalid menu item id: %w", err)
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MenuItemResponse{}, errors.New("menu item not found")
		}
		return MenuItemResponse{}, fmt.Errorf("database error: %w", err)
	}

	return mapMenuItem(*item), nil
}

func (s *catalogService) CreateMenuItem(ctx context.Context, userID string, req CreateMenuItemRequest) (MenuItemResponse, error) {
	price, err := parsePrice(req.Price)
	if err != nil {
		return MenuItemResponse{}, err
	}

	item := model.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		IsActive:    true,
		IsAvailable: true,
		Allergens:   req.Allergens,
	}

	if req.CategoryID != "" {
		catID, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return MenuItemResponse{}, fmt.Errorf("invalid category id: %w", err)
		}
		if _, err := s.categoryRepo.FindByID(ctx, catID); err != nil {
			return MenuItemResponse{}, errors.New("category not found")
		}
		item.CategoryID = &catID
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Create(txCtx, &item); err != nil {
			return fmt.Errorf("failed to create menu item: %w", err)
		}
		return s.logAction(txCtx, userID, model.ActionCreateMenuItem, item.ID.String(), item.Name, req)
	})
	if err != nil {
		return MenuItemResponse{}, err
	}

	return mapMenuItem(item), nil
}

func (s *catalogService) UpdateMenuItem(ctx context.Context, userID, id string, req UpdateMenuItemRequest) (MenuItemResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return MenuItemResponse{}, fmt.Errorf("invalid menu item id: %w", err)
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MenuItemResponse{}, errors.New("menu item not found")
		}
		return MenuItemResponse{}, fmt.Errorf("database error: %w", err)
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		return MenuItemResponse{}, err
	}

	item.Name = req.Name
	item.Description = req.Description
	item.Price = price
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if req.Allergens != nil {
		item.Allergens = req.Allergens
	}

	if req.CategoryID != "" {
		catID, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return MenuItemResponse{}, fmt.Errorf("invalid category id: %w", err)
		}
		if _, err := s.categoryRepo.FindByID(ctx, catID); err != nil {
			return MenuItemResponse{}, errors.New("category not found")
		}
		item.CategoryID = &catID
	} else {
		item.CategoryID = nil
	}
	item.Category = nil

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Update(txCtx, item); err != nil {
			return fmt.Errorf("failed to update menu item: %w", err)
		}
		return s.logAction(txCtx, userID, model.ActionUpdateMenuItem, item.ID.String(), item.Name, req)
	})
	if err != nil {
		return MenuItemResponse{}, err
	}

	return mapMenuItem(*item), nil
}

// SetAvailability flips only the is_available flag — the quick
// out-of-stock toggle used during service hours
func (s *catalogService) SetAvailability(ctx context.Context, userID, id string, req SetAvailabilityRequest) (MenuItemResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return MenuItemResponse{}, fmt.Errorf("invalid menu item id: %w", err)
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MenuItemResponse{}, errors.New("menu item not found")
		}
		return MenuItemResponse{}, fmt.Errorf("database error: %w", err)
	}

	item.IsAvailable = *req.IsAvailable

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Update(txCtx, item); err != nil {
			return fmt.Errorf("failed to update availability: %w", err)
		}
		return s.logAction(txCtx, userID, model.ActionToggleAvailability, item.ID.String(), item.Name, req)
	})
	if err != nil {
		return MenuItemResponse{}, err
	}

	return mapMenuItem(*item), nil
}

func (s *catalogService) DeleteMenuItem(ctx context.Context, userID, id string) error {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid menu item id: %w", err)
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("menu item not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Delete(txCtx, itemID); err != nil {
			return fmt.Errorf("failed to delete menu item: %w", err)
		}
		return s.logAction(txCtx, userID, model.ActionDeleteMenuItem, item.ID.String(), item.Name, map[string]bool{"deleted": true})
	})
}

// logAction writes an audit entry inside the surrounding transaction
func (s *catalogService) logAction(ctx context.Context, userID, action, entityID, entityName string, payload interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	details, _ := json.Marshal(payload)
	audit := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
