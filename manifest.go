package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Manifest describes a stitch run without the browser:
//
//	orientation: vertical
//	format: jpeg
//	quality: 92
//	images:
//	  - file: frame-001.png
//	    size: 20
//	    position: 80
//	  - file: frame-002.png
//	    orientation: horizontal
//
// Relative file paths are resolved against the manifest's directory.
type Manifest struct {
	Orientation Orientation     `yaml:"orientation"`
	Format      string          `yaml:"format"`
	Quality     int             `yaml:"quality"`
	Images      []ManifestImage `yaml:"images"`
}

type ManifestImage struct {
	File        string       `yaml:"file"`
	Orientation *Orientation `yaml:"orientation"`
	Size        *float64     `yaml:"size"`
	Position    *float64     `yaml:"position"`
}

func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range m.Images {
		if !filepath.IsAbs(m.Images[i].File) {
			m.Images[i].File = filepath.Join(base, m.Images[i].File)
		}
	}
	return m, nil
}

func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (m Manifest) Validate() error {
	if len(m.Images) == 0 {
		return ErrEmptyInput
	}
	var errs []error
	for i, img := range m.Images {
		if img.File == "" {
			errs = append(errs, fmt.Errorf("images[%d]: file is required", i))
		}
		crop := m.crop(img)
		if !crop.Valid() {
			errs = append(errs, fmt.Errorf("images[%d]: %w: %s", i, ErrInvalidGeometry, crop))
		}
	}
	if m.Quality < 0 || m.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality %d out of range", m.Quality))
	}
	if m.Format != "" {
		if _, err := ParseFormat(m.Format); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Manifest) crop(img ManifestImage) CropRect {
	o := m.Orientation
	if img.Orientation != nil {
		o = *img.Orientation
	}
	crop := NewCropRect(o)
	if img.Size != nil {
		crop.Size = *img.Size
	}
	if img.Position != nil {
		crop.Position = *img.Position
	}
	return crop
}

// EncodeOptions overrides defaults with the manifest's format and quality.
func (m Manifest) EncodeOptions(defaults EncodeOptions) EncodeOptions {
	opts := defaults
	if f, err := ParseFormat(m.Format); err == nil {
		opts.Format = f
	}
	if m.Quality > 0 {
		opts.Quality = m.Quality
	}
	return opts
}

// Workspace decodes the manifest's images into a new workspace. Files that
// cannot be decoded are skipped.
func (m Manifest) Workspace(ctx context.Context) (*Workspace, error) {
	sources := make([]Source, len(m.Images))
	for i, img := range m.Images {
		sources[i] = FileSource(filepath.Base(img.File), img.File)
	}
	images, err := decodeAll(ctx, sources)
	if err != nil {
		return nil, err
	}

	ws := NewWorkspace(m.Orientation)
	for _, img := range images {
		e := ws.Add(img.Name, img.Bitmap, OriginUpload)
		e.Crop = m.crop(m.Images[img.Index])
		log.Ctx(ctx).Debug().Str("filename", img.Name).Stringer("crop", e.Crop).Msg("image loaded")
	}
	return ws, nil
}
