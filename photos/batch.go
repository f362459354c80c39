package photos

import "github.com/jrsteele09/secure-health/internal/utils"

// Batch is a set of captured photos being reviewed before upload, with the form
// values entered for them. The zero value is an empty batch.
type Batch struct {
	photos      []string
	preview     string // Most recent capture awaiting keep or retake
	current     int
	Title       string // Case reference
	Description string
}

// NewBatch starts a batch from already captured photos.
func NewBatch(photos []string) *Batch {
	return &Batch{photos: utils.CloneSlice(photos)}
}

// Add records a capture. It is kept in the batch and shown as the preview.
func (b *Batch) Add(uri string) {
	b.photos = append(b.photos, uri)
	b.preview = uri
}

// KeepAndContinue keeps the previewed capture and clears the preview for the next one.
func (b *Batch) KeepAndContinue() bool {
	if b.preview == "" {
		return false
	}
	b.preview = ""
	return true
}

// Retake drops the most recent capture.
func (b *Batch) Retake() {
	if len(b.photos) > 0 {
		b.photos = b.photos[:len(b.photos)-1]
	}
	b.preview = ""
	b.clamp()
}

// Preview returns the capture awaiting keep or retake.
func (b *Batch) Preview() (string, bool) {
	return b.preview, b.preview != ""
}

// Photos returns a copy of the photo URIs in capture order.
func (b *Batch) Photos() []string {
	return utils.CloneSlice(b.photos)
}

func (b *Batch) Len() int {
	return len(b.photos)
}

// Current returns the photo shown in the viewer.
func (b *Batch) Current() (uri string, index int, ok bool) {
	if len(b.photos) == 0 {
		return "", 0, false
	}
	return b.photos[b.current], b.current, true
}

// Select shows the photo at index. Out of range indexes are ignored.
func (b *Batch) Select(index int) bool {
	if index < 0 || index >= len(b.photos) {
		return false
	}
	b.current = index
	return true
}

// Next moves to the following photo, wrapping around at the end.
func (b *Batch) Next() {
	b.current = (b.current + 1) % max(1, len(b.photos))
}

// Prev moves to the previous photo, wrapping around at the start.
func (b *Batch) Prev() {
	n := max(1, len(b.photos))
	b.current = (b.current - 1 + n) % n
}

// DeleteCurrent removes the photo shown in the viewer.
func (b *Batch) DeleteCurrent() bool {
	if len(b.photos) == 0 {
		return false
	}
	removed := b.photos[b.current]
	b.photos = append(b.photos[:b.current:b.current], b.photos[b.current+1:]...)
	if removed == b.preview {
		b.preview = ""
	}
	b.clamp()
	return true
}

// HasUnsavedChanges reports whether leaving would lose photos or entered values.
func (b *Batch) HasUnsavedChanges() bool {
	return len(b.photos) > 0 || b.preview != "" || b.Title != "" || b.Description != ""
}

// Upload returns the upload request for the batch.
func (b *Batch) Upload() Upload {
	return Upload{Title: b.Title, Description: b.Description, Photos: b.Photos()}
}

func (b *Batch) clamp() {
	if len(b.photos) == 0 {
		b.current = 0
		return
	}
	b.current = min(b.current, len(b.photos)-1)
}
