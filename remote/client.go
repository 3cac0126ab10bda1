package remote

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Minute

// Client downloads asset files over HTTP.
type Client struct {
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a download client sending userAgent with each request.
func NewClient(userAgent string) (*Client, error) {
	if userAgent == "" {
		return nil, fmt.Errorf("user agent is not configured")
	}

	return &Client{
		UserAgent: userAgent,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// IsURL reports whether s is an http or https URL rather than a local path.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FilenameFromURL returns the last path segment of rawURL, or "" if it has
// none.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return ""
	}
	return name
}

func (c *Client) get(rawURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("request failed: status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return resp, nil
}

// DownloadFile downloads rawURL into dir and returns the written path. The
// file name comes from the URL.
func (c *Client) DownloadFile(log *zap.SugaredLogger, dir, rawURL string) (string, error) {
	filename := FilenameFromURL(rawURL)
	if filename == "" {
		return "", fmt.Errorf("cannot derive a file name from '%s'", rawURL)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create target directory '%s': %w", dir, err)
	}
	destinationPath := filepath.Join(dir, filename)

	log.Infow("Downloading", zap.String("url", rawURL), zap.String("path", destinationPath))
	resp, err := c.get(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to start download of '%s': %w", rawURL, err)
	}
	defer resp.Body.Close()

	outFile, err := os.Create(destinationPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file '%s': %w", destinationPath, err)
	}

	n, err := io.Copy(outFile, resp.Body)
	if err != nil {
		outFile.Close()
		// Remove partially downloaded file
		os.Remove(destinationPath)
		return "", fmt.Errorf("failed to write downloaded content to '%s': %w", destinationPath, err)
	}
	if err := outFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close '%s': %w", destinationPath, err)
	}

	log.Infow("Download finished", zap.String("path", destinationPath), zap.Int64("bytes", n))
	return destinationPath, nil
}
