package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the webp decoder with image.Decode
)

type preparedImage struct {
	data        []byte
	format      string
	contentType string
	width       int
	height      int
}

var encodings = map[imaging.Format]struct {
	name        string
	contentType string
}{
	imaging.JPEG: {"jpg", "image/jpeg"},
	imaging.PNG:  {"png", "image/png"},
	imaging.GIF:  {"gif", "image/gif"},
	imaging.TIFF: {"tiff", "image/tiff"},
	imaging.BMP:  {"bmp", "image/bmp"},
}

// prepareImage decodes the file at path, resizes it per opts and re-encodes
// it. SVG is passed through untouched; webp is re-encoded as PNG since
// imaging has no webp encoder.
func prepareImage(path string, opts UploadOptions) (*preparedImage, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "svg" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read svg: %w", err)
		}
		return &preparedImage{
			data:        data,
			format:      "svg",
			contentType: "image/svg+xml",
			width:       opts.Width,
			height:      opts.Height,
		}, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if opts.Width > 0 && opts.Height > 0 {
		switch opts.Crop {
		case "fill":
			img = imaging.Fill(img, opts.Width, opts.Height, imaging.Center, imaging.Lanczos)
		case "scale":
			img = imaging.Resize(img, opts.Width, opts.Height, imaging.Lanczos)
		default:
			img = imaging.Fit(img, opts.Width, opts.Height, imaging.Lanczos)
		}
	}

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		format = imaging.PNG
	}
	enc := encodings[format]

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	bounds := img.Bounds()
	return &preparedImage{
		data:        buf.Bytes(),
		format:      enc.name,
		contentType: enc.contentType,
		width:       bounds.Dx(),
		height:      bounds.Dy(),
	}, nil
}
