package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Fetch downloads url and extracts its text based on the response
// Content-Type. Bodies larger than MaxSize are rejected.
func Fetch(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/pdf,text/plain;q=0.9,*/*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("fetching %s: body larger than %d bytes", url, MaxSize)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/pdf":
		return Extract("posting.pdf", data)
	case mediaType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return Extract("posting.docx", data)
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		text, err := HTMLToText(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("extracting %s: %w", url, err)
		}
		return strings.TrimSpace(text), nil
	default:
		return Extract("posting.txt", data)
	}
}
