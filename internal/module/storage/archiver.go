package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultDownloadTimeout = 120 * time.Second

// ObjectPutter uploads archive objects. Implemented by Client.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// Archiver copies vendor-hosted generation outputs into the archive
// bucket. Vendor URLs expire after a while; archived copies do not.
type Archiver struct {
	store         ObjectPutter
	httpClient    *http.Client
	publicBaseURL string
	logger        *zap.Logger
}

// ArchiverConfig carries the archiver dependencies.
type ArchiverConfig struct {
	Store         ObjectPutter
	PublicBaseURL string
	HTTPClient    *http.Client // optional
	Logger        *zap.Logger
}

// NewArchiver creates a new output archiver.
func NewArchiver(cfg ArchiverConfig) *Archiver {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultDownloadTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		store:         cfg.Store,
		httpClient:    httpClient,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:        logger.Named("storage"),
	}
}

// ArchiveOutput copies every "*_url" string field and "*_urls" list entry
// of the output into the bucket and returns a copy of the output with the
// archived URLs swapped in. Fields that fail to archive keep their vendor
// URL; the error return stays nil so a flaky download never fails the
// generation.
func (a *Archiver) ArchiveOutput(ctx context.Context, recordID uuid.UUID, output map[string]any) (map[string]any, error) {
	archived := make(map[string]any, len(output))
	for k, v := range output {
		archived[k] = v
	}

	for field, value := range output {
		switch {
		case strings.HasSuffix(field, "_url"):
			src, ok := value.(string)
			if !ok || src == "" {
				continue
			}
			if dst, ok := a.archiveOne(ctx, recordID, strings.TrimSuffix(field, "_url"), src); ok {
				archived[field] = dst
			}

		case strings.HasSuffix(field, "_urls"):
			list, ok := value.([]any)
			if !ok {
				continue
			}
			name := strings.TrimSuffix(field, "_urls")
			out := make([]any, len(list))
			copy(out, list)
			for i, item := range list {
				src, ok := item.(string)
				if !ok || src == "" {
					continue
				}
				if dst, ok := a.archiveOne(ctx, recordID, fmt.Sprintf("%s_%d", name, i), src); ok {
					out[i] = dst
				}
			}
			archived[field] = out
		}
	}

	return archived, nil
}

// archiveOne downloads one vendor URL and uploads it under a stable key.
func (a *Archiver) archiveOne(ctx context.Context, recordID uuid.UUID, name, src string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		a.logger.Warn("archive download request failed",
			zap.String("record_id", recordID.String()),
			zap.String("url", src),
			zap.Error(err))
		return "", false
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("archive download failed",
			zap.String("record_id", recordID.String()),
			zap.String("url", src),
			zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("archive download returned non-200",
			zap.String("record_id", recordID.String()),
			zap.String("url", src),
			zap.Int("status", resp.StatusCode))
		return "", false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		a.logger.Warn("archive download read failed",
			zap.String("record_id", recordID.String()),
			zap.String("url", src),
			zap.Error(err))
		return "", false
	}

	contentType := resp.Header.Get("Content-Type")
	key := objectKey(recordID, name, src, contentType)

	if err := a.store.PutObject(ctx, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		a.logger.Warn("archive upload failed",
			zap.String("record_id", recordID.String()),
			zap.String("key", key),
			zap.Error(err))
		return "", false
	}

	a.logger.Debug("archived output",
		zap.String("record_id", recordID.String()),
		zap.String("key", key),
		zap.Int("bytes", len(body)))
	return a.publicBaseURL + "/" + key, true
}

// objectKey builds "generations/<record>/<name><ext>", taking the
// extension from the source URL path first and the content type second.
func objectKey(recordID uuid.UUID, name, src, contentType string) string {
	ext := ""
	if u, err := url.Parse(src); err == nil {
		ext = path.Ext(u.Path)
	}
	if ext == "" && contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("generations/%s/%s%s", recordID, name, ext)
}
