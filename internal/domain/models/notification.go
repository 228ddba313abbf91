package models

import "time"

// NotificationType enumerates the events users are told about.
type NotificationType string

const (
	NotifyDeliveryScheduled NotificationType = "delivery_scheduled"
	NotifyDeliveryReminder  NotificationType = "delivery_reminder"
	NotifyOrderApproved     NotificationType = "order_approved"
	NotifyOrderRejected     NotificationType = "order_rejected"
	NotifyOrderFulfilled    NotificationType = "order_fulfilled"
	NotifyPaymentReminder   NotificationType = "payment_reminder"
	NotifyLowStock          NotificationType = "low_stock"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID            string           `bson:"_id" json:"id"`
	TenantID      string           `bson:"tenant_id" json:"tenant_id"`
	UserID        string           `bson:"user_id" json:"user_id"`
	Type          NotificationType `bson:"type" json:"type"`
	Title         string           `bson:"title" json:"title"`
	Message       string           `bson:"message" json:"message"`
	RelatedEntity string           `bson:"related_entity,omitempty" json:"related_entity,omitempty"`
	RelatedID     string           `bson:"related_id,omitempty" json:"related_id,omitempty"`
	Read          bool             `bson:"read" json:"read"`
	CreatedAt     time.Time        `bson:"created_at" json:"created_at"`
}
