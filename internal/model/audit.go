package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateCategory = "CREATE_CATEGORY"
	ActionUpdateCategory = "UPDATE_CATEGORY"
	ActionDeleteCategory = "DELETE_CATEGORY"

	ActionCreateMenuItem     = "CREATE_MENU_ITEM"
	ActionUpdateMenuItem     = "UPDATE_MENU_ITEM"
	ActionDeleteMenuItem     = "DELETE_MENU_ITEM"
	ActionToggleAvailability = "TOGGLE_ITEM_AVAILABILITY"

	ActionCreateOrder       = "CREATE_ORDER"
	ActionUpdateOrderStatus = "UPDATE_ORDER_STATUS"
	ActionDeleteOrder       = "DELETE_ORDER"

	ActionUpdateUserRole = "UPDATE_USER_ROLE"
	ActionDeleteUser     = "DELETE_USER"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated
	User       *User      `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL;" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
