package models

import (
	"time"

	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QueryHistory 是一次问答记录, 只追加, 按租户隔离。
type QueryHistory struct {
	ID        string                             `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	UserID    string                             `gorm:"index:idx_history_user_created,priority:1;not null;size:255" bson:"user_id" json:"-"`
	Question  string                             `gorm:"type:text;not null" bson:"question" json:"question"`
	Answer    string                             `gorm:"type:text" bson:"answer" json:"answer"`
	Sources   datatypes.JSONSlice[schema.Source] `gorm:"type:json" bson:"sources" json:"sources,omitempty"`
	CreatedAt time.Time                          `gorm:"index:idx_history_user_created,priority:2" bson:"created_at" json:"createdAt"`
}

// TableName 指定表名。
func (QueryHistory) TableName() string {
	return "query_history"
}

// BeforeCreate 在插入前为记录生成 UUID。
func (h *QueryHistory) BeforeCreate(_ *gorm.DB) error {
	h.EnsureID()
	return nil
}

// EnsureID 为缺少 ID 的记录生成 UUID, 供不经过 gorm 的存储后端使用。
func (h *QueryHistory) EnsureID() {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
}
