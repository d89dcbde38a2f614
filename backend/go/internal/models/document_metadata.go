package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentMetadata 记录一个已上传文件的元数据。
// Path 是对象存储中的键, FileName 是用户上传时的原始文件名。
type DocumentMetadata struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"index;not null;size:255" json:"userId"`
	FileName    string    `gorm:"not null;size:512" json:"fileName"`
	Path        string    `gorm:"not null;size:1024" json:"path"`
	ContentType string    `gorm:"size:128" json:"contentType,omitempty"`
	SizeBytes   int64     `json:"sizeBytes,omitempty"`
	UploadedAt  time.Time `gorm:"autoCreateTime" json:"uploadedAt"`
}

// TableName 指定表名。
func (DocumentMetadata) TableName() string {
	return "documents_metadata"
}

// BeforeCreate 在插入前为记录生成 UUID。
func (d *DocumentMetadata) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
