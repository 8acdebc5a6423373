// Package images uploads profile photos to the external image host and
// returns the hosted display URL.
package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/clinicdesk/dashboard/pkg/logging"
)

// MaxUploadSize caps accepted image payloads at 10 MB.
const MaxUploadSize = 10 << 20

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Client talks to the image hosting API.
type Client struct {
	uploadURL  string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// Config holds configuration for the image host client.
type Config struct {
	UploadURL string
	APIKey    string
	Timeout   time.Duration
	Logger    *logging.Logger
}

// NewClient creates a new image host client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.UploadURL == "" {
		return nil, fmt.Errorf("images: UploadURL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("images: APIKey is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		uploadURL:  cfg.UploadURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// ValidateFilename rejects files whose extension is not an accepted image
// type.
func ValidateFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("images: unsupported file type %q, allowed: jpg, jpeg, png, gif, webp", ext)
	}
	return nil
}

// Upload sends the image bytes to the host and returns the public display
// URL for the stored copy.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("images: failed to read file: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("images: empty file")
	}
	if len(data) > MaxUploadSize {
		return "", fmt.Errorf("images: file exceeds the %d MB limit", MaxUploadSize>>20)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("images: failed to build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("images: failed to build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("images: failed to build form: %w", err)
	}

	endpoint := c.uploadURL + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("images: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("images: upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("images: upload failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result struct {
		Data struct {
			DisplayURL string `json:"display_url"`
			URL        string `json:"url"`
		} `json:"data"`
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("images: failed to decode response: %w", err)
	}

	url := result.Data.DisplayURL
	if url == "" {
		url = result.Data.URL
	}
	if url == "" {
		return "", fmt.Errorf("images: host returned no image URL")
	}

	c.logger.Info("image uploaded",
		"filename", filepath.Base(filename),
		"size_bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds())
	return url, nil
}
