package model

import "time"

// TicketPriority 是工单优先级。
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

// TicketStatus 由外部支持工具流转，本服务只写入 open。
type TicketStatus string

const (
	TicketStatusOpen TicketStatus = "open"
)

// Ticket 对应 support_tickets 表，每次升级创建一次。
type Ticket struct {
	ID              string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID          string         `gorm:"type:varchar(64);index;not null" json:"userId"`
	UserName        string         `gorm:"type:varchar(255)" json:"userName"`
	Role            string         `gorm:"type:varchar(64)" json:"role"`
	OriginalMessage string         `gorm:"type:text;not null" json:"originalMessage"`
	Intent          string         `gorm:"type:varchar(32)" json:"intent,omitempty"`
	Context         string         `gorm:"type:text" json:"context,omitempty"`
	Priority        TicketPriority `gorm:"type:varchar(16);index;not null" json:"priority"`
	Status          TicketStatus   `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (Ticket) TableName() string {
	return "support_tickets"
}
