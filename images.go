package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	_ "golang.org/x/image/webp"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type FileInfo struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	Image      ImageInfo `json:"image"`
}

type Directory struct {
	Name  string     `json:"name"`
	Files []FileInfo `json:"files"`
}

func isImageFile(name string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(name)))
}

func walkImages(ctx context.Context, rootPath string) (Directory, error) {
	var files []FileInfo

	if err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isImageFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info: %w", err)
		}
		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		files = append(files, FileInfo{
			Name:       filepath.ToSlash(relPath),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	}); err != nil {
		return Directory{}, err
	}

	for i := range files {
		w, h, err := readImageDimensions(filepath.Join(rootPath, files[i].Name))
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("filename", files[i].Name).Msg("cannot read image dimensions")
			continue
		}
		files[i].Image = ImageInfo{Width: w, Height: h}
	}

	return Directory{
		Name:  filepath.Base(rootPath),
		Files: files,
	}, nil
}

func readImageDimensions(filePath string) (width, height int, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrUnsupportedMedia, filepath.Base(filePath), err)
	}
	return cfg.Width, cfg.Height, nil
}

// decodeImage reads a raster in any registered format, applying EXIF
// orientation the way browsers do when drawing an <img>.
func decodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}
	return img, nil
}

// Source is one file waiting to be decoded into a workspace entry.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource opens path on every call to Open.
func FileSource(name, path string) Source {
	return Source{
		Name: name,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

type decoded struct {
	// Index is the position of the source in the decodeAll input.
	Index  int
	Name   string
	Bitmap image.Image
}

// decodeAll decodes sources concurrently and returns the ones that decoded,
// in input order. Undecodable inputs are logged and skipped.
func decodeAll(ctx context.Context, sources []Source) ([]decoded, error) {
	results := make([]*decoded, len(sources))

	pooler := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(runtime.NumCPU())
	for i, src := range sources {
		pooler.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := decodeSource(src)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("filename", src.Name).Msg("skipping image")
				return nil
			}
			results[i] = &decoded{Index: i, Name: src.Name, Bitmap: img}
			return nil
		})
	}
	if err := pooler.Wait(); err != nil {
		return nil, err
	}

	out := make([]decoded, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func decodeSource(src Source) (image.Image, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src.Name, err)
	}
	defer rc.Close()
	return decodeImage(rc)
}
