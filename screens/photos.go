package screens

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/jrsteele09/secure-health/navigation"
	"github.com/jrsteele09/secure-health/photos"
)

const (
	PermissionDeniedText = "Permission denied"
	NoPhotosText         = "There are no photos to upload."
	ConfirmLeaveText     = "Are you sure you want to leave?"
)

// PhotoList shows the most recent photos of a library.
type PhotoList struct {
	library *photos.Library
	photos  []photos.Photo
	err     string
}

func NewPhotoList(library *photos.Library) *PhotoList {
	return &PhotoList{library: library}
}

func (p *PhotoList) Name() navigation.Screen { return navigation.Photos }
func (p *PhotoList) Title() string           { return "Photos" }

func (p *PhotoList) Load(ctx context.Context) error {
	list, err := p.library.List(ctx)
	switch {
	case errors.Is(err, errors.ErrPermissionDenied):
		p.err = PermissionDeniedText
	case err != nil:
		p.err = err.Error()
	default:
		p.photos, p.err = list, ""
	}
	return err
}

func (p *PhotoList) Photos() []photos.Photo {
	return append([]photos.Photo(nil), p.photos...)
}

func (p *PhotoList) Render() []string {
	if p.err != "" {
		return []string{p.err}
	}
	if len(p.photos) == 0 {
		return []string{"No photos"}
	}
	lines := make([]string, 0, len(p.photos))
	for _, ph := range p.photos {
		lines = append(lines, fmt.Sprintf("%s  %s", ph.ModTime.Format("Jan 2, 2006 3:04 PM"), ph.URI))
	}
	return lines
}

// TakePhoto collects captures for a new batch.
type TakePhoto struct {
	shell *navigation.Shell
	batch *photos.Batch
}

func NewTakePhoto(shell *navigation.Shell) *TakePhoto {
	t := &TakePhoto{shell: shell, batch: &photos.Batch{}}
	shell.SetGuard(t.guard)
	return t
}

func (t *TakePhoto) Name() navigation.Screen { return navigation.TakePhoto }
func (t *TakePhoto) Title() string           { return "Take Photo" }

// Capture adds an image file to the batch.
func (t *TakePhoto) Capture(path string) error {
	if !photos.IsImage(path) {
		return errors.Wrapf(errors.ErrValidation, "%s is not an image", path)
	}
	if _, err := os.Stat(photos.PathFromURI(path)); err != nil {
		return errors.Wrapf(errors.ErrNotFound, "%s", path)
	}
	t.batch.Add(photos.FileURI(path))
	return nil
}

func (t *TakePhoto) Keep() bool { return t.batch.KeepAndContinue() }
func (t *TakePhoto) Retake()    { t.batch.Retake() }

// Done hands the captured photos to the review screen.
func (t *TakePhoto) Done() error {
	return t.shell.ShowPhotoDetail(t.batch.Photos())
}

// Discard drops all captures so the screen can be left.
func (t *TakePhoto) Discard() {
	t.batch = &photos.Batch{}
}

func (t *TakePhoto) Batch() *photos.Batch { return t.batch }

func (t *TakePhoto) guard(navigation.Route) error {
	if t.batch.HasUnsavedChanges() {
		return errors.Wrapf(errors.ErrUnsavedChanges, "%s", ConfirmLeaveText)
	}
	return nil
}

func (t *TakePhoto) Render() []string {
	lines := []string{fmt.Sprintf("%d photo(s) taken", t.batch.Len())}
	if uri, ok := t.batch.Preview(); ok {
		lines = append(lines, "Preview: "+uri, "[keep] Keep and continue", "[retake] Retake")
	} else {
		lines = append(lines, "[capture FILE] Take a photo")
	}
	if t.batch.Len() > 0 {
		lines = append(lines, "[done] Review and upload")
	}
	return lines
}

// PhotoDetail reviews a batch, takes its case reference and description, and uploads it.
type PhotoDetail struct {
	shell    *navigation.Shell
	uploader photos.Uploader
	batch    *photos.Batch
	nowTime  func() time.Time

	lock      sync.RWMutex
	uploading bool
	progress  int
}

func NewPhotoDetail(shell *navigation.Shell, uploader photos.Uploader, route navigation.Route, nowTime func() time.Time) *PhotoDetail {
	if nowTime == nil {
		nowTime = time.Now
	}
	d := &PhotoDetail{shell: shell, uploader: uploader, batch: photos.NewBatch(route.Photos), nowTime: nowTime}
	shell.SetGuard(d.guard)
	return d
}

func (d *PhotoDetail) Name() navigation.Screen { return navigation.PhotoDetail }
func (d *PhotoDetail) Title() string           { return "Photo Detail" }

func (d *PhotoDetail) Batch() *photos.Batch { return d.batch }

// Progress returns whether an upload is running and its percentage.
func (d *PhotoDetail) Progress() (uploading bool, percent int) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.uploading, d.progress
}

// Upload sends the batch. On success the batch is cleared and the shell is reset to its
// initial screen.
func (d *PhotoDetail) Upload(ctx context.Context) (*photos.Receipt, error) {
	if d.batch.Len() == 0 {
		return nil, errors.Wrapf(errors.ErrNoPhotos, "%s", NoPhotosText)
	}
	d.setProgress(true, 0)
	defer d.setProgress(false, 0)

	receipt, err := d.uploader.Upload(ctx, d.batch.Upload(), func(done, total int) {
		d.setProgress(true, photos.Percent(done, total))
	})
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	d.batch = &photos.Batch{}
	d.shell.Reset()
	return receipt, nil
}

// Discard drops the batch so the screen can be left.
func (d *PhotoDetail) Discard() {
	d.batch = &photos.Batch{}
}

func (d *PhotoDetail) setProgress(uploading bool, percent int) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.uploading, d.progress = uploading, percent
}

func (d *PhotoDetail) guard(navigation.Route) error {
	if d.batch.HasUnsavedChanges() {
		return errors.Wrapf(errors.ErrUnsavedChanges, "%s", ConfirmLeaveText)
	}
	return nil
}

func (d *PhotoDetail) Render() []string {
	now := d.nowTime()
	lines := []string{now.Format("Jan 2, 2006") + "  " + now.Format("3:04 PM")}
	if uploading, percent := d.Progress(); uploading {
		return append(lines, fmt.Sprintf("Uploading... %d%%", percent))
	}
	if uri, idx, ok := d.batch.Current(); ok {
		lines = append(lines, fmt.Sprintf("Photo %d of %d: %s", idx+1, d.batch.Len(), uri))
	} else {
		lines = append(lines, "No photos")
	}
	lines = append(lines,
		"Case Reference (Internal): "+d.batch.Title,
		"Description: "+d.batch.Description,
		"[next] [prev] [delete] [title TEXT] [description TEXT] [upload]",
	)
	return lines
}
