package models

import (
	"time"

	"github.com/angelmondragon/cartflow/pkg/enums"
)

// OrderSubmission records one attempt to create an order upstream.
type OrderSubmission struct {
	ID              string                 `gorm:"column:id;primaryKey"`
	SessionID       string                 `gorm:"column:session_id;not null"`
	PayloadHash     string                 `gorm:"column:payload_hash;not null"`
	Status          enums.SubmissionStatus `gorm:"column:status;not null"`
	PaymentMethod   string                 `gorm:"column:payment_method;not null;default:''"`
	LineItemCount   int                    `gorm:"column:line_item_count;not null;default:0"`
	ShippingTotal   string                 `gorm:"column:shipping_total;not null;default:'0.00'"`
	UpstreamOrderID *int64                 `gorm:"column:upstream_order_id"`
	UpstreamStatus  *int                   `gorm:"column:upstream_status"`
	ErrorCode       *string                `gorm:"column:error_code"`
	ErrorMessage    *string                `gorm:"column:error_message"`
	DurationMS      int64                  `gorm:"column:duration_ms;not null;default:0"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (OrderSubmission) TableName() string {
	return "order_submissions"
}
