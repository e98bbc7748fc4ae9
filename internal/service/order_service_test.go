package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- in-memory fakes ---

type fakeOrderRepo struct {
	itemSource *fakeMenuItemRepo
	orders     map[uuid.UUID]*model.Order
	lineItems  []model.OrderItem
}

func newFakeOrderRepo(itemSource *fakeMenuItemRepo) *fakeOrderRepo {
	return &fakeOrderRepo{
		itemSource: itemSource,
		orders:     make(map[uuid.UUID]*model.Order),
	}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	stored.Items = nil
	f.orders[order.ID] = &stored
	return nil
}

func (f *fakeOrderRepo) CreateItem(ctx context.Context, item *model.OrderItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.lineItems = append(f.lineItems, *item)
	return nil
}

func (f *fakeOrderRepo) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *o
	for _, li := range f.lineItems {
		if li.OrderID != id {
			continue
		}
		if menuItem, ok := f.itemSource.items[li.MenuItemID]; ok {
			li.MenuItem = *menuItem
		}
		out.Items = append(out.Items, li)
	}
	return &out, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	o, ok := f.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeOrderRepo) List(ctx context.Context, page, limit int, status string) ([]model.Order, int64, error) {
	var out []model.Order
	for id, o := range f.orders {
		if status != "" && o.Status != status {
			continue
		}
		loaded, _ := f.FindByIDWithItems(ctx, id)
		out = append(out, *loaded)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.orders, id)
	kept := f.lineItems[:0]
	for _, li := range f.lineItems {
		if li.OrderID != id {
			kept = append(kept, li)
		}
	}
	f.lineItems = kept
	return nil
}

func newOrderService() (OrderService, CatalogService, *fakeOrderRepo, *fakeAuditRepo) {
	categories := newFakeCategoryRepo()
	items := newFakeMenuItemRepo()
	orders := newFakeOrderRepo(items)
	audit := &fakeAuditRepo{}
	catalog := NewCatalogService(categories, items, audit, &fakeTxManager{})
	// nil hub: broadcasts are a no-op in tests
	svc := NewOrderService(orders, items, audit, &fakeTxManager{}, nil)
	return svc, catalog, orders, audit
}

// --- tests ---

func TestCreateOrderSnapshotsUnitPrice(t *testing.T) {
	svc, catalog, _, _ := newOrderService()
	ctx := context.Background()

	item, err := catalog.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Margherita", Price: "11.50"})
	require.NoError(t, err)

	order, err := svc.CreateOrder(ctx, actorID, CreateOrderRequest{
		CustomerName: "Alice",
		OrderType:    model.OrderTypeDineIn,
		Items: []OrderItemRequest{
			{MenuItemID: item.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "11.50", order.Items[0].UnitPrice)
	assert.Equal(t, "23.00", order.TotalAmount)

	// Raise the menu price after the fact
	_, err = catalog.UpdateMenuItem(ctx, actorID, item.ID, UpdateMenuItemRequest{Name: "Margherita", Price: "15.00"})
	require.NoError(t, err)

	// The snapshot must not move
	reloaded, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "11.50", reloaded.Items[0].UnitPrice)
	assert.Equal(t, "23.00", reloaded.TotalAmount)
}

func TestCreateOrderComputesDecimalTotal(t *testing.T) {
	svc, catalog, _, _ := newOrderService()
	ctx := context.Background()

	espresso, err := catalog.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Espresso", Price: "2.10"})
	require.NoError(t, err)
	cake, err := catalog.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Cheesecake", Price: "5.30"})
	require.NoError(t, err)

	order, err := svc.CreateOrder(ctx, actorID, CreateOrderRequest{
		CustomerName: "Bob",
		OrderType:    model.OrderTypeTakeaway,
		Items: []OrderItemRequest{
			{MenuItemID: espresso.ID, Quantity: 3},
			{MenuItemID: cake.ID, Quantity: 1, Instructions: "no topping"},
		},
	})
	require.NoError(t, err)
	// 3*2.10 + 1*5.30 = 11.60, no float drift
	assert.Equal(t, "11.60", order.TotalAmount)
	assert.Equal(t, model.OrderStatusReceived, order.Status)
}

func TestCreateOrderRejectsUnavailableItems(t *testing.T) {
	svc, catalog, _, _ := newOrderService()
	ctx := context.Background()

	item, err := catalog.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Calzone", Price: "13.00"})
	require.NoError(t, err)
	_, err = catalog.SetAvailability(ctx, actorID, item.ID, SetAvailabilityRequest{IsAvailable: boolPtr(false)})
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, actorID, CreateOrderRequest{
		CustomerName: "Carol",
		OrderType:    model.OrderTypeDelivery,
		Items:        []OrderItemRequest{{MenuItemID: item.ID, Quantity: 1}},
	})
	assert.EqualError(t, err, "menu item is currently unavailable: Calzone")

	_, err = svc.CreateOrder(ctx, actorID, CreateOrderRequest{
		CustomerName: "Carol",
		OrderType:    model.OrderTypeDelivery,
		Items:        []OrderItemRequest{{MenuItemID: uuid.NewString(), Quantity: 1}},
	})
	assert.Error(t, err)
}

func TestUpdateOrderStatus(t *testing.T) {
	svc, catalog, _, audit := newOrderService()
	ctx := context.Background()

	item, err := catalog.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Margherita", Price: "11.50"})
	require.NoError(t, err)
	order, err := svc.CreateOrder(ctx, actorID, CreateOrderRequest{
		CustomerName: "Alice",
		OrderType:    model.OrderTypeDineIn,
		Items:        []OrderItemRequest{{MenuItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, actorID, order.ID, UpdateOrderStatusRequest{Status: model.OrderStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProgress, updated.Status)

	// No enforced transition graph: ready -> received is allowed
	_, err = svc.UpdateStatus(ctx, actorID, order.ID, UpdateOrderStatusRequest{Status: model.OrderStatusReceived})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, actorID, order.ID, UpdateOrderStatusRequest{Status: "vanished"})
	assert.Error(t, err)

	var statusChanges int
	for _, e := range audit.entries {
		if e.Action == model.ActionUpdateOrderStatus {
			statusChanges++
		}
	}
	assert.Equal(t, 2, statusChanges)
}

func TestListOrdersFilterByStatus(t *testing.T) {
	svc, catalog, _, _ := newOrderService()
	ctx := context.Background()

	item, err := catalog.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Espresso", Price: "2.10"})
	require.NoError(t, err)

	first, err := svc.CreateOrder(ctx, actorID, CreateOrderRequest{
		CustomerName: "Alice", OrderType: model.OrderTypeDineIn,
		Items: []OrderItemRequest{{MenuItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, actorID, CreateOrderRequest{
		CustomerName: "Bob", OrderType: model.OrderTypeDineIn,
		Items: []OrderItemRequest{{MenuItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, actorID, first.ID, UpdateOrderStatusRequest{Status: model.OrderStatusReady})
	require.NoError(t, err)

	ready, total, err := svc.ListOrders(ctx, 1, 20, model.OrderStatusReady)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, ready, 1)
	assert.Equal(t, "Alice", ready[0].CustomerName)

	_, _, err = svc.ListOrders(ctx, 1, 20, "bogus")
	assert.EqualError(t, err, "invalid status filter")
}

func TestDeleteOrderRemovesLineItems(t *testing.T) {
	svc, catalog, orders, _ := newOrderService()
	ctx := context.Background()

	item, err := catalog.CreateMenuItem(ctx, actorID, CreateMenuItemRequest{Name: "Espresso", Price: "2.10"})
	require.NoError(t, err)
	order, err := svc.CreateOrder(ctx, actorID, CreateOrderRequest{
		CustomerName: "Alice", OrderType: model.OrderTypeDineIn,
		Items: []OrderItemRequest{{MenuItemID: item.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(ctx, actorID, order.ID))
	assert.Empty(t, orders.lineItems)
	_, err = svc.GetOrder(ctx, order.ID)
	assert.EqualError(t, err, "order not found")
}
