// Package covers downloads book cover images and prepares their placeholders.
package covers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/listenupapp/readup-server/internal/media/images"
	"github.com/listenupapp/readup-server/internal/normalize"
)

const (
	// maxCoverSize limits download size to prevent memory exhaustion.
	maxCoverSize = 10 * 1024 * 1024 // 10MB

	// downloadTimeout is the maximum time for a cover download.
	downloadTimeout = 30 * time.Second
)

// ErrTooLarge is returned when a cover exceeds maxCoverSize.
var ErrTooLarge = errors.New("cover exceeds size limit")

// Result describes a stored cover.
type Result struct {
	FileName string // Name within the cover storage, e.g. "42-dune.jpg"
	Format   string
	Width    int
	Height   int
	Size     int64
	BlurHash string
}

// Downloader fetches remote covers into local storage.
type Downloader struct {
	httpClient *http.Client
	storage    *images.Storage
	logger     *slog.Logger
}

// NewDownloader creates a new cover downloader.
func NewDownloader(storage *images.Storage, logger *slog.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: downloadTimeout,
		},
		storage: storage,
		logger:  logger,
	}
}

// FileName builds the storage name of a cover: "{id}-{slug}{ext}".
func FileName(bookID int64, title, ext string) string {
	name := strconv.FormatInt(bookID, 10)
	if slug := normalize.Slugify(title); slug != "" {
		name += "-" + slug
	}
	return name + ext
}

// Download fetches the cover at url, checks that it is an image, stores it
// for the book and computes its BlurHash. A cover whose BlurHash cannot be
// computed is still stored.
func (d *Downloader) Download(ctx context.Context, bookID int64, title, url string) (*Result, error) {
	if url == "" {
		return nil, errors.New("empty cover URL")
	}

	downloadCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	// Read one byte past the limit to detect oversized covers.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize+1))
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if len(data) > maxCoverSize {
		return nil, fmt.Errorf("%w: more than %s", ErrTooLarge, humanize.IBytes(maxCoverSize))
	}

	info, err := images.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("not an image: %w", err)
	}

	result := &Result{
		FileName: FileName(bookID, title, images.Extension(info.Format)),
		Format:   info.Format,
		Width:    info.Width,
		Height:   info.Height,
		Size:     int64(len(data)),
	}

	if err := d.storage.Save(result.FileName, data); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	result.BlurHash, err = images.ComputeBlurHash(bytes.NewReader(data))
	if err != nil {
		d.logger.Warn("failed to compute cover blurhash",
			"book_id", bookID,
			"error", err,
		)
	}

	d.logger.Info("downloaded cover",
		"book_id", bookID,
		"file", result.FileName,
		"size", humanize.Bytes(uint64(result.Size)),
		"width", result.Width,
		"height", result.Height,
	)
	return result, nil
}
