// Package drive talks to the long-term file store that finished drawings
// are relocated to. Relocation is a convenience step: failures here never
// fail a generation run.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"casegen/internal/common/config"
	"casegen/internal/common/errors"
	"casegen/internal/common/logger"
)

// UploadResult mirrors the store's upload response.
type UploadResult struct {
	Success     bool   `json:"success"`
	FileID      string `json:"fileId,omitempty"`
	WebViewLink string `json:"webViewLink,omitempty"`
	ErrorMsg    string `json:"error,omitempty"`
}

// Uploader is the surface the result materializer relocates through.
type Uploader interface {
	Upload(ctx context.Context, folderID, filename string, data []byte) (*UploadResult, error)
}

// Client uploads files into shared-drive folders over the store's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(cfg config.DriveConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: config.GetDuration(cfg.Timeout)},
		logger:     log.WithFields(map[string]interface{}{"component": "drive-client"}),
	}
}

// Upload sends the file into the given folder and returns the shareable
// link on success.
func (c *Client) Upload(ctx context.Context, folderID, filename string, data []byte) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("folderId", folderID); err != nil {
		return nil, errors.NewRelocationFailedError(err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.NewRelocationFailedError(err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, errors.NewRelocationFailedError(err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewRelocationFailedError(err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/files", &body)
	if err != nil {
		return nil, errors.NewRelocationFailedError(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewRelocationFailedError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewRelocationFailedError(err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.NewRelocationFailedError(
			fmt.Errorf("drive upload returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var result UploadResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, errors.NewRelocationFailedError(err)
	}
	if !result.Success {
		return nil, errors.NewRelocationFailedError(fmt.Errorf("drive rejected upload: %s", result.ErrorMsg))
	}

	c.logger.Info("file relocated to drive", map[string]interface{}{
		"folderId": folderID,
		"filename": filename,
		"fileId":   result.FileID,
	})

	return &result, nil
}

// Timeout exposes the configured per-upload deadline for callers that want
// their own bound.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}
