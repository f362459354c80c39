package photos

import (
	"context"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/rs/zerolog/log"
)

// Upload is a batch of photos submitted together.
type Upload struct {
	Title       string
	Description string
	Photos      []string // URIs
}

// Receipt confirms an upload.
type Receipt struct {
	BatchID     uuid.UUID
	Count       int
	CompletedAt time.Time
}

// ProgressFunc is called after each photo with the number uploaded so far.
type ProgressFunc func(done, total int)

// Uploader sends a batch of photos.
type Uploader interface {
	Upload(ctx context.Context, u Upload, progress ProgressFunc) (*Receipt, error)
}

var _ Uploader = (*StubUploader)(nil)

// StubUploader checks each photo is readable and waits Delay per photo instead of
// transferring it. There is no upload API yet.
type StubUploader struct {
	Delay   time.Duration
	nowTime func() time.Time
}

// NewStubUploader returns a stub that takes delay per photo.
func NewStubUploader(delay time.Duration) *StubUploader {
	return &StubUploader{Delay: delay, nowTime: time.Now}
}

func (s *StubUploader) Upload(ctx context.Context, u Upload, progress ProgressFunc) (*Receipt, error) {
	if len(u.Photos) == 0 {
		return nil, errors.ErrNoPhotos
	}
	batchID := uuid.New()
	logger := log.With().Str("batch_id", batchID.String()).Int("photos", len(u.Photos)).Logger()
	logger.Info().Str("title", u.Title).Msg("uploading photo batch")

	for i, uri := range u.Photos {
		if strings.HasPrefix(uri, "file://") {
			if _, err := os.Stat(PathFromURI(uri)); err != nil {
				return nil, errors.Wrapf(errors.ErrNotFound, "photo %s: %v", uri, err)
			}
		}
		select {
		case <-ctx.Done():
			logger.Warn().Int("done", i).Msg("photo upload canceled")
			return nil, ctx.Err()
		case <-time.After(s.Delay):
		}
		if progress != nil {
			progress(i+1, len(u.Photos))
		}
	}

	now := time.Now
	if s.nowTime != nil {
		now = s.nowTime
	}
	logger.Info().Msg("photo batch uploaded")
	return &Receipt{BatchID: batchID, Count: len(u.Photos), CompletedAt: now()}, nil
}

// Percent is the rounded percentage of done out of total.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
