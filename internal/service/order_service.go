package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type OrderItemRequest struct {
	MenuItemID   string `json:"menu_item_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,gt=0"`
	Instructions string `json:"instructions"`
}

type CreateOrderRequest struct {
	CustomerName  string             `json:"customer_name" binding:"required"`
	CustomerPhone string             `json:"customer_phone"`
	OrderType     string             `json:"order_type" binding:"required,oneof=dine_in takeaway delivery"`
	Notes         string             `json:"notes"`
	Items         []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderItemResponse struct {
	ID           string `json:"id"`
	MenuItemID   string `json:"menu_item_id"`
	MenuItemName string `json:"menu_item_name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	Instructions string `json:"instructions,omitempty"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone,omitempty"`
	OrderType     string              `json:"order_type"`
	Status        string              `json:"status"`
	Notes         string              `json:"notes,omitempty"`
	TotalAmount   string              `json:"total_amount"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
}

// OrderEvent is the websocket payload pushed to connected staff clients
type OrderEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderService handles the order aggregate: creation with price snapshots,
// status tracking and deletion
type OrderService interface {
	CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*OrderResponse, error)
	GetOrder(ctx context.Context, id string) (*OrderResponse, error)
	ListOrders(ctx context.Context, page, limit int, status string) ([]OrderResponse, int64, error)
	UpdateStatus(ctx context.Context, userID, id string, req UpdateOrderStatusRequest) (*OrderResponse, error)
	DeleteOrder(ctx context.Context, userID, id string) error
}

type orderService struct {
	orderRepo repository.OrderRepository
	itemRepo  repository.MenuItemRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	hub       *ws.Hub
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	itemRepo repository.MenuItemRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		itemRepo:  itemRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		hub:       hub,
	}
}

func mapOrder(o *model.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ID:           item.ID.String(),
			MenuItemID:   item.MenuItemID.String(),
			MenuItemName: item.MenuItem.Name,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice.StringFixed(2),
			Instructions: item.Instructions,
		})
	}
	return &OrderResponse{
		ID:            o.ID.String(),
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		OrderType:     o.OrderType,
		Status:        o.Status,
		Notes:         o.Notes,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		Items:         items,
		CreatedAt:     o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     o.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// CreateOrder validates every line against the live catalog, snapshots the
// current menu price into each line item and computes the total — all in
// one transaction.
func (s *orderService) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*OrderResponse, error) {
	var order model.Order

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var itemNames []string
		total := decimal.Zero

		type pendingItem struct {
			menuItem *model.MenuItem
			req      OrderItemRequest
		}
		pending := make([]pendingItem, 0, len(req.Items))

		for _, itemReq := range req.Items {
			mid, parseErr := uuid.Parse(itemReq.MenuItemID)
			if parseErr != nil {
				return fmt.Errorf("invalid menu_item_id: %w", parseErr)
			}
			menuItem, findErr := s.itemRepo.FindByID(txCtx, mid)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return fmt.Errorf("menu item not found: %s", itemReq.MenuItemID)
				}
				return fmt.Errorf("failed to find menu item %s: %w", itemReq.MenuItemID, findErr)
			}

			if !menuItem.IsActive {
				return fmt.Errorf("menu item is no longer offered: %s", menuItem.Name)
			}
			if !menuItem.IsAvailable {
				return fmt.Errorf("menu item is currently unavailable: %s", menuItem.Name)
			}

			itemNames = append(itemNames, menuItem.Name)
			total = total.Add(menuItem.Price.Mul(decimal.NewFromInt(int64(itemReq.Quantity))))
			pending = append(pending, pendingItem{menuItem: menuItem, req: itemReq})
		}

		order = model.Order{
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			OrderType:     req.OrderType,
			Status:        model.OrderStatusReceived,
			Notes:         req.Notes,
			TotalAmount:   total,
		}
		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, p := range pending {
			orderItem := &model.OrderItem{
				OrderID:      order.ID,
				MenuItemID:   p.menuItem.ID,
				Quantity:     p.req.Quantity,
				UnitPrice:    p.menuItem.Price, // snapshot, survives later price edits
				Instructions: p.req.Instructions,
			}
			if err := s.orderRepo.CreateItem(txCtx, orderItem); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(userID); err == nil {
			uid = &parsed
		}

		details, _ := json.Marshal(map[string]interface{}{
			"customer_name": req.CustomerName,
			"order_type":    req.OrderType,
			"total_amount":  total.StringFixed(2),
			"item_count":    len(req.Items),
		})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreateOrder,
			EntityID:   order.ID.String(),
			EntityName: strings.Join(itemNames, ", "),
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to record audit transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.orderRepo.FindByIDWithItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	res := mapOrder(created)
	s.broadcast(EventOrderCreated, res)
	return res, nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}

	order, err := s.orderRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("order not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return mapOrder(order), nil
}

func (s *orderService) ListOrders(ctx context.Context, page, limit int, status string) ([]OrderResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if status != "" && !model.ValidOrderStatus(status) {
		return nil, 0, errors.New("invalid status filter")
	}

	orders, total, err := s.orderRepo.List(ctx, page, limit, status)
	if err != nil {
		return nil, 0, err
	}

	res := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, *mapOrder(&orders[i]))
	}
	return res, total, nil
}

// UpdateStatus moves an order to any known state. The schema deliberately
// leaves the transition graph unconstrained.
func (s *orderService) UpdateStatus(ctx context.Context, userID, id string, req UpdateOrderStatusRequest) (*OrderResponse, error) {
	if !model.ValidOrderStatus(req.Status) {
		return nil, errors.New("invalid status: must be received, in_progress, ready, delivered or cancelled")
	}

	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}

	order, err := s.orderRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("order not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	previous := order.Status
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.UpdateStatus(txCtx, orderID, req.Status); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(userID); err == nil {
			uid = &parsed
		}

		details, _ := json.Marshal(map[string]string{"from": previous, "to": req.Status})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionUpdateOrderStatus,
			EntityID:   order.ID.String(),
			EntityName: order.CustomerName,
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

	order.Status = req.Status
	res := mapOrder(order)
	s.broadcast(EventOrderStatusChanged, map[string]interface{}{
		"order_id": order.ID.String(),
		"from":     previous,
		"to":       req.Status,
	})
	return res, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, userID, id string) error {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid order id: %w", err)
	}

	order, err := s.orderRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("order not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	// Line items cascade with the order row
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Delete(txCtx, orderID); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(userID); err == nil {
			uid = &parsed
		}

		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionDeleteOrder,
			EntityID:   order.ID.String(),
			EntityName: order.CustomerName,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

// broadcast pushes an order event to the hub; a nil hub (tests) is a no-op
func (s *orderService) broadcast(event string, data interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(OrderEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}
