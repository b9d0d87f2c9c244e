package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/sentinel"
)

// maxImageBytes caps a single download. Image URLs arrive from
// untrusted callers; an oversized body should fail the sub-task, not
// exhaust memory.
const maxImageBytes = 20 << 20

// HTTPImageFetcher downloads images over HTTP and rejects responses
// that are not images.
type HTTPImageFetcher struct {
	client *http.Client
}

// NewHTTPImageFetcher builds a fetcher with a bounded request timeout.
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	return &HTTPImageFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the image at url.
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "build image request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(errors.Join(sentinel.ErrUnavailable, err), dErrors.CodeUnavailable, "download image")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, fmt.Sprintf("no image at %s", url))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "download image: status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read image body")
	}
	if len(body) > maxImageBytes {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "image exceeds %d bytes", maxImageBytes)
	}

	if !looksLikeImage(body) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "content at %s is not an image", url)
	}

	return body, nil
}

func looksLikeImage(body []byte) bool {
	contentType := http.DetectContentType(body)
	return strings.HasPrefix(contentType, "image/")
}

var _ ImageFetcher = (*HTTPImageFetcher)(nil)
