package model

import "time"

// Snapshot is a persisted client-side state blob (cart contents, conversation context).
type Snapshot struct {
	StorageKey string    `gorm:"column:storage_key;primaryKey;size:191"`
	Payload    string    `gorm:"column:payload;type:mediumtext;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Snapshot) TableName() string {
	return "client_snapshots"
}

// OrderRecord keeps the receipts of orders placed through the assistant so a
// session can track them without another backend round trip.
type OrderRecord struct {
	ID          uint64       `gorm:"primaryKey;autoIncrement"`
	OrderID     string       `gorm:"column:order_id;size:64;uniqueIndex;not null"`
	ClientID    string       `gorm:"column:client_id;size:128;index;not null"`
	UserID      string       `gorm:"column:user_id;size:128;index"`
	Mode        CheckoutMode `gorm:"column:mode;size:16;not null"`
	Status      OrderStatus  `gorm:"column:status;size:32;not null"`
	TotalAmount int64        `gorm:"column:total_amount"`
	Receipt     string       `gorm:"column:receipt;type:text"`
	CreatedAt   time.Time    `gorm:"autoCreateTime"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime"`
}

func (OrderRecord) TableName() string {
	return "assistant_orders"
}
