package generator

import (
	"context"
	"fmt"

	"casegen/internal/common/errors"
	"casegen/internal/common/logger"
	"casegen/internal/drive"
	"casegen/internal/storage"
)

// Materializer retrieves the generated drawing and optionally relocates it
// to long-term drive storage.
type Materializer struct {
	store  storage.ObjectStore
	drive  drive.Uploader
	logger logger.Logger
}

func NewMaterializer(store storage.ObjectStore, uploader drive.Uploader, log logger.Logger) *Materializer {
	return &Materializer{
		store:  store,
		drive:  uploader,
		logger: log.WithFields(map[string]interface{}{"component": "materializer"}),
	}
}

// Fetch downloads the finished drawing from the bucket.
func (m *Materializer) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := m.store.Download(ctx, bucket, key)
	if err != nil {
		return nil, errors.NewIOError("download result "+key, err)
	}
	if len(data) == 0 {
		return nil, errors.NewIOError("download result "+key, fmt.Errorf("engine produced an empty object"))
	}
	return data, nil
}

// Relocate pushes the drawing to drive storage and, on success, removes the
// bucket copy so it does not linger in scratch space. A relocation failure
// leaves the bucket copy in place and reports a non-fatal error; the caller
// still has valid output bytes.
func (m *Materializer) Relocate(ctx context.Context, bucket, key, folderID, filename string, data []byte) (string, error) {
	if m.drive == nil || folderID == "" {
		return "", nil
	}

	res, err := m.drive.Upload(ctx, folderID, filename, data)
	if err != nil {
		return "", err
	}

	if err := m.store.Remove(ctx, bucket, key); err != nil {
		// The drawing is safe in drive storage; a stale bucket copy is
		// only a hygiene problem.
		m.logger.Warn("bucket copy removal after relocation failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	m.logger.Info("drawing relocated to drive storage", map[string]interface{}{
		"fileId":   res.FileID,
		"filename": filename,
	})
	return res.WebViewLink, nil
}
