package domain

// EntryChangedEvent 自评新增/修改事件（发布到 Redis Streams，触发异步重算）
type EntryChangedEvent struct {
	UserID    string `json:"user_id"`
	EntryDate string `json:"entry_date"`
	Timestamp int64  `json:"timestamp"`
}
