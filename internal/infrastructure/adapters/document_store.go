package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileDocumentStore writes KYC document images to local disk and
// returns a file URL. Swap for object storage in deployments that
// need durability across hosts.
type FileDocumentStore struct {
	baseDir string
}

func NewFileDocumentStore(baseDir string) (*FileDocumentStore, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &FileDocumentStore{baseDir: baseDir}, nil
}

// Store persists one document under an unguessable name
func (s *FileDocumentStore) Store(_ context.Context, userID uuid.UUID, docType string, data []byte) (string, error) {
	dir := filepath.Join(s.baseDir, userID.String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s", docType, uuid.NewString())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	return "file://" + path, nil
}
