package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatisticsResponse aggregates order totals and catalog counts for the dashboard
type StatisticsResponse struct {
	TotalOrders        int64             `json:"total_orders"`
	OrdersByStatus     map[string]int64  `json:"orders_by_status"`
	Revenue            decimal.Decimal   `json:"revenue"`
	AverageOrderValue  decimal.Decimal   `json:"average_order_value"`
	TopSellingItems    []MenuItemRanking `json:"top_selling_items"`
	ActiveMenuItems    int64             `json:"active_menu_items"`
	ActiveCategories   int64             `json:"active_categories"`
	TimeRangeStartDate time.Time         `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time         `json:"time_range_end_date"`
}

// MenuItemRanking represents a ranked menu item based on accumulated quantities
type MenuItemRanking struct {
	MenuItemID    string          `json:"menu_item_id"`
	MenuItemName  string          `json:"menu_item_name"`
	TotalQuantity int             `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}
