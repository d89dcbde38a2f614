package dal

import (
	"context"
	"errors"
	"fmt"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"gorm.io/gorm"
)

// FileDAL provides data access methods for uploaded-file metadata.
type FileDAL struct {
	db *gorm.DB
}

// NewFileDAL creates a new FileDAL.
func NewFileDAL(db *gorm.DB) *FileDAL {
	return &FileDAL{db: db}
}

// CreateFile inserts a metadata row. The ID is generated when empty.
func (dal *FileDAL) CreateFile(ctx context.Context, doc *models.DocumentMetadata) error {
	if err := dal.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create file metadata: %w", err)
	}
	return nil
}

// GetFile loads a metadata row by ID.
func (dal *FileDAL) GetFile(ctx context.Context, fileID string) (*models.DocumentMetadata, error) {
	var doc models.DocumentMetadata
	err := dal.db.WithContext(ctx).Where("id = ?", fileID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", schema.ErrMetadataNotFound, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("get file metadata: %w", err)
	}
	return &doc, nil
}

// ListFilesByUser returns a tenant's uploads, newest first.
func (dal *FileDAL) ListFilesByUser(ctx context.Context, userID string) ([]*models.DocumentMetadata, error) {
	var docs []*models.DocumentMetadata
	result := dal.db.WithContext(ctx).Where("user_id = ?", userID).Order("uploaded_at DESC").Find(&docs)
	if result.Error != nil {
		return nil, result.Error
	}
	return docs, nil
}

var _ interfaces.FileMetadataStore = (*FileDAL)(nil)
