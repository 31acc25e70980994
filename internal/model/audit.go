package model

import "time"

// AuditRecord 对应 assistant_interactions 表，每条处理过的消息追加一条。
type AuditRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"type:varchar(64);index;not null" json:"userId"`
	UserName        string    `gorm:"type:varchar(255)" json:"userName"`
	Role            string    `gorm:"type:varchar(64)" json:"role"`
	Message         string    `gorm:"type:text;not null" json:"message"`
	Intent          *string   `gorm:"type:varchar(32)" json:"intent,omitempty"`
	Confidence      *float64  `json:"confidence,omitempty"`
	ResponseText    *string   `gorm:"type:text" json:"responseText,omitempty"`
	Escalated       bool      `gorm:"not null;default:false" json:"escalated"`
	TicketID        *string   `gorm:"type:varchar(64)" json:"ticketId,omitempty"`
	QueriedRowCount *int      `json:"queriedRowCount,omitempty"`
	Error           *string   `gorm:"type:text" json:"error,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (AuditRecord) TableName() string {
	return "assistant_interactions"
}
