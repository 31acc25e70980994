package model

import "time"

// ConversationContext 是每个用户最近一轮的对话上下文，用于解析追问。
// 每个用户同一时间只有一条记录（后写覆盖），超过 TTL 即失效。
type ConversationContext struct {
	UserID       string    `json:"userId"`
	LastIntent   Intent    `json:"lastIntent"`
	LastEntities Entities  `json:"lastEntities"`
	LastMessage  string    `json:"lastMessage"`
	LastResult   []Row     `json:"lastResult,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
