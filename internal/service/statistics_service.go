package service

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetStatistics aggregates dashboard metrics bounded by a time range.
// Revenue counts delivered orders only; cancelled orders are excluded
// everywhere except the per-status counts.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate
	response.OrdersByStatus = make(map[string]int64)
	response.Revenue = decimal.Zero
	response.AverageOrderValue = decimal.Zero

	// Orders per status
	var statusCounts []struct {
		Status string
		Count  int64
	}
	s.db.WithContext(ctx).Table("orders").
		Select("status, COUNT(*) as count").
		Where("orders.created_at >= ? AND orders.created_at <= ?", startDate, endDate).
		Group("status").
		Scan(&statusCounts)
	for _, sc := range statusCounts {
		response.OrdersByStatus[sc.Status] = sc.Count
		response.TotalOrders += sc.Count
	}

	// Revenue from delivered orders
	var revenue struct {
		Value decimal.Decimal
		Count int64
	}
	s.db.WithContext(ctx).Table("orders").
		Select("COALESCE(SUM(total_amount), 0) as value, COUNT(*) as count").
		Where("orders.status = ? AND orders.created_at >= ? AND orders.created_at <= ?", model.OrderStatusDelivered, startDate, endDate).
		Scan(&revenue)
	response.Revenue = revenue.Value
	if revenue.Count > 0 {
		response.AverageOrderValue = revenue.Value.Div(decimal.NewFromInt(revenue.Count)).Round(2)
	}

	// Top selling items, by quantity across non-cancelled orders
	var topItems []model.MenuItemRanking
	s.db.WithContext(ctx).Table("order_items").
		Select("menu_items.id as menu_item_id, menu_items.name as menu_item_name, SUM(order_items.quantity) as total_quantity, SUM(order_items.quantity * order_items.unit_price) as total_value").
		Joins("JOIN menu_items ON menu_items.id = order_items.menu_item_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ? AND orders.created_at >= ? AND orders.created_at <= ?", model.OrderStatusCancelled, startDate, endDate).
		Group("menu_items.id, menu_items.name").
		Order("total_quantity DESC").
		Limit(5).
		Scan(&topItems)
	response.TopSellingItems = topItems

	// Catalog counts are point-in-time, not range-bound
	s.db.WithContext(ctx).Model(&model.MenuItem{}).
		Where("is_active = ?", true).
		Count(&response.ActiveMenuItems)
	s.db.WithContext(ctx).Model(&model.Category{}).
		Where("is_active = ?", true).
		Count(&response.ActiveCategories)

	return response, nil
}
