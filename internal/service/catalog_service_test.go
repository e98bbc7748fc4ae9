package service

import (
	"context"
	"sort"
	"testing"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- in-memory fakes ---

type fakeCategoryRepo struct {
	categories map[uuid.UUID]*model.Category
	itemSource *fakeMenuItemRepo
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[uuid.UUID]*model.Category)}
}

func (f *fakeCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	stored := *category
	f.categories[category.ID] = &stored
	return nil
}

func (f *fakeCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeCategoryRepo) sorted(filterActive bool) []model.Category {
	var out []model.Category
	for _, c := range f.categories {
		if filterActive && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (f *fakeCategoryRepo) ListAll(ctx context.Context) ([]model.Category, error) {
	return f.sorted(false), nil
}

func (f *fakeCategoryRepo) ListActive(ctx context.Context) ([]model.Category, error) {
	return f.sorted(true), nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, category *model.Category) error {
	stored := *category
	f.categories[category.ID] = &stored
	return nil
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.categories, id)
	// mirrors the ON DELETE CASCADE on menu_items.category_id
	if f.itemSource != nil {
		for itemID, item := range f.itemSource.items {
			if item.CategoryID != nil && *item.CategoryID == id {
				delete(f.itemSource.items, itemID)
			}
		}
	}
	return nil
}

type fakeMenuItemRepo struct {
	items map[uuid.UUID]*model.MenuItem
}

func newFakeMenuItemRepo() *fakeMenuItemRepo {
	return &fakeMenuItemRepo{items: make(map[uuid.UUID]*model.MenuItem)}
}

func (f *fakeMenuItemRepo) Create(ctx context.Context, item *model.MenuItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	stored := *item
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeMenuItemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.MenuItem, error) {
	i, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *i
	return &out, nil
}

func (f *fakeMenuItemRepo) List(ctx context.Context, page, limit int, search string) ([]model.MenuItem, int64, error) {
	var out []model.MenuItem
	for _, i := range f.items {
		out = append(out, *i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (f *fakeMenuItemRepo) ListPublic(ctx context.Context, categoryID *uuid.UUID) ([]model.MenuItem, error) {
	var out []model.MenuItem
	for _, i := range f.items {
		if !i.IsActive || !i.IsAvailable {
			continue
		}
		if categoryID != nil && (i.CategoryID == nil || *i.CategoryID != *categoryID) {
			continue
		}
		out = append(out, *i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeMenuItemRepo) Update(ctx context.Context, item *model.MenuItem) error {
	stored := *item
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeMenuItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.items, id)
	return nil
}

func newCatalogService() (CatalogService, *fakeCategoryRepo, *fakeMenuItemRepo, *fakeAuditRepo) {
	categories := newFakeCategoryRepo()
	items := newFakeMenuItemRepo()
	categories.itemSource = items
	audit := &fakeAuditRepo{}
	return NewCatalogService(categories, items, audit, &fakeTxManager{}), categories, items, audit
}

const actorID = "c7a1d3a0-0000-0000-0000-000000000001"

// --- tests ---

func TestPublicMenuExcludesInactiveAndUnavailable(t *testing.T) {
	svc, _, items, _ := newCatalogService()
	ctx := context.Background()

	listed, err := svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Margherita", Price: "11.50"})
	require.NoError(t, err)

	outOfStock, err := svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Calzone", Price: "13.00"})
	require.NoError(t, err)
	_, err = svc.SetAvailability(ctx, actorID, outOfStock.ID, SetAvailabilityRequest{IsAvailable: boolPtr(false)})
	require.NoError(t, err)

	retired, err := svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Quattro Stagioni", Price: "14.00"})
	require.NoError(t, err)
	_, err = svc.UpdateMenuItem(ctx, actorID, retired.ID, UpdateMenuItemRequest{Name: "Quattro Stagioni", Price: "14.00", IsActive: boolPtr(false)})
	require.NoError(t, err)

	public, err := svc.ListPublicMenuItems(ctx, "")
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, listed.ID, public[0].ID)

	// Staff view still sees all three, flags intact
	all, total, err := svc.ListMenuItems(ctx, 1, 20, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)

	byID := make(map[string]MenuItemResponse)
	for _, i := range all {
		byID[i.ID] = i
	}
	assert.False(t, byID[outOfStock.ID].IsAvailable)
	assert.True(t, byID[outOfStock.ID].IsActive)
	assert.False(t, byID[retired.ID].IsActive)

	_ = items
}

func TestPublicCategoriesExcludeInactive(t *testing.T) {
	svc, _, _, _ := newCatalogService()
	ctx := context.Background()

	visible, err := svc.CreateCategory(ctx, actorID, CreateCategoryRequest{Name: "Pizze", DisplayOrder: 2})
	require.NoError(t, err)
	first, err := svc.CreateCategory(ctx, actorID, CreateCategoryRequest{Name: "Antipasti", DisplayOrder: 1})
	require.NoError(t, err)

	hidden, err := svc.CreateCategory(ctx, actorID, CreateCategoryRequest{Name: "Winter Specials", DisplayOrder: 3})
	require.NoError(t, err)
	_, err = svc.UpdateCategory(ctx, actorID, hidden.ID, UpdateCategoryRequest{Name: "Winter Specials", DisplayOrder: 3, IsActive: boolPtr(false)})
	require.NoError(t, err)

	public, err := svc.ListPublicCategories(ctx)
	require.NoError(t, err)
	require.Len(t, public, 2)
	// Display order respected
	assert.Equal(t, first.ID, public[0].ID)
	assert.Equal(t, visible.ID, public[1].ID)

	all, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCreateMenuItemValidation(t *testing.T) {
	svc, _, _, _ := newCatalogService()
	ctx := context.Background()

	_, err := svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Free Lunch", Price: "-1.00"})
	assert.EqualError(t, err, "price must not be negative")

	_, err = svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Mystery", Price: "not-a-number"})
	assert.Error(t, err)

	_, err = svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Orphan", Price: "5.00", CategoryID: uuid.NewString()})
	assert.EqualError(t, err, "category not found")
}

func TestMenuItemPriceIsFixedPoint(t *testing.T) {
	svc, _, items, _ := newCatalogService()
	ctx := context.Background()

	created, err := svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Espresso", Price: "2.5"})
	require.NoError(t, err)
	assert.Equal(t, "2.50", created.Price)

	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	stored, err := items.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("2.50")))
}

func TestDeleteCategoryCascadesItems(t *testing.T) {
	svc, _, items, audit := newCatalogService()
	ctx := context.Background()

	pizze, err := svc.CreateCategory(ctx, actorID, CreateCategoryRequest{Name: "Pizze"})
	require.NoError(t, err)

	_, err = svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Margherita", Price: "11.50", CategoryID: pizze.ID})
	require.NoError(t, err)
	_, err = svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Calzone", Price: "13.00", CategoryID: pizze.ID})
	require.NoError(t, err)
	standalone, err := svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Espresso", Price: "2.10"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, actorID, pizze.ID))

	// Category and both of its items are gone, the uncategorized one stays
	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)
	remaining, total, err := svc.ListMenuItems(ctx, 1, 20, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, remaining, 1)
	assert.Equal(t, standalone.ID, remaining[0].ID)
	assert.Len(t, items.items, 1)

	require.NotEmpty(t, audit.entries)
	last := audit.entries[len(audit.entries)-1]
	assert.Equal(t, model.ActionDeleteCategory, last.Action)
	assert.Equal(t, "Pizze", last.EntityName)
}

func TestCatalogActionsAreAudited(t *testing.T) {
	svc, _, _, audit := newCatalogService()
	ctx := context.Background()

	item, err := svc.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Tiramisu", Price: "6.00", Allergens: []string{"egg", "milk"}})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteMenuItem(ctx, actorID, item.ID))

	require.Len(t, audit.entries, 2)
	assert.Equal(t, model.ActionCreateMenuItem, audit.entries[0].Action)
	assert.Equal(t, model.ActionDeleteMenuItem, audit.entries[1].Action)
	assert.Equal(t, "Tiramisu", audit.entries[1].EntityName)
}

func boolPtr(b bool) *bool { return &b }
