package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/gabriel-vasile/mimetype"
)

// sniffLen matches the number of bytes mimetype inspects by default.
const sniffLen = 3072

// allowedMIME lists, per file type, the detected content types accepted for
// an upload. Parents of the detected type are checked as well, so a CSV that
// sniffs as plain text still passes.
var allowedMIME = map[schema.FileType][]string{
	schema.FileTypePDF:  {"application/pdf"},
	schema.FileTypeDOCX: {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	schema.FileTypeCSV:  {"text/csv", "application/csv", "text/plain"},
}

// Upload stores a file under <tenant>/<unixMillis>-<name> and records its
// metadata. The extension picks the file type and the sniffed content must
// agree with it.
func (s *Server) Upload(ctx context.Context, tenantID, fileName string, r io.Reader, size int64) (*models.DocumentMetadata, error) {
	name := cleanName(fileName)
	if name == "" {
		return nil, fmt.Errorf("%w: file name is required", schema.ErrInvalidInput)
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: file is empty", schema.ErrInvalidInput)
	}
	if s.maxUpload > 0 && size > s.maxUpload {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", schema.ErrInvalidInput, s.maxUpload)
	}
	ft, err := schema.ParseFileType(name)
	if err != nil {
		return nil, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	detected := mimetype.Detect(head)
	if !allowed(ft, detected) {
		return nil, fmt.Errorf("%w: %s content detected as %s", schema.ErrUnsupportedFormat, ft, detected.String())
	}

	objectName := fmt.Sprintf("%s/%d-%s", tenantID, s.now().UnixMilli(), name)
	contentType := detected.String()
	if err := s.deps.Blobs.Upload(ctx, objectName, io.MultiReader(bytes.NewReader(head), r), size, contentType); err != nil {
		return nil, err
	}

	doc := &models.DocumentMetadata{
		UserID:      tenantID,
		FileName:    name,
		Path:        objectName,
		ContentType: contentType,
		SizeBytes:   size,
	}
	if err := s.deps.Files.CreateFile(ctx, doc); err != nil {
		return nil, err
	}
	s.log.WithTrace("", tenantID).WithPayload(map[string]interface{}{
		"file_id": doc.ID,
		"path":    objectName,
		"mime":    contentType,
	}).Info("file uploaded")
	return doc, nil
}

func allowed(ft schema.FileType, detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		for _, want := range allowedMIME[ft] {
			if m.Is(want) {
				return true
			}
		}
	}
	return false
}

// cleanName keeps the base name and drops characters that would break the
// object key layout.
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '/' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
