package artifact

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BaSui01/cubesnap/modeling"
	"github.com/BaSui01/cubesnap/types"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Container is the on-disk image format, chosen from the output extension.
type Container string

const (
	ContainerPNG  Container = "png"
	ContainerJPEG Container = "jpeg"
	ContainerGIF  Container = "gif"
	ContainerBMP  Container = "bmp"
	ContainerTIFF Container = "tiff"
)

// DefaultContainer is used when the output path has no known extension.
const DefaultContainer = ContainerPNG

const jpegQuality = 90

// MaxPixels bounds the raster a snapshot may declare before it is decoded.
const MaxPixels = 8192 * 8192

// Info describes a written artifact.
type Info struct {
	Path      string
	Container Container
	Width     int
	Height    int
	Bytes     int
}

// ContainerFor maps an output path to a container by extension.
func ContainerFor(path string) Container {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return ContainerJPEG
	case ".gif":
		return ContainerGIF
	case ".bmp":
		return ContainerBMP
	case ".tif", ".tiff":
		return ContainerTIFF
	default:
		return DefaultContainer
	}
}

// Decode parses data as an image in the declared format. An empty format
// falls back to sniffing. The header is checked against MaxPixels before the
// raster is allocated.
func Decode(data []byte, format modeling.ImageFormat) (image.Image, error) {
	var (
		decodeConfig func(io.Reader) (image.Config, error)
		decode       func(io.Reader) (image.Image, error)
	)
	switch format {
	case modeling.ImageFormatPNG:
		decodeConfig, decode = png.DecodeConfig, png.Decode
	case modeling.ImageFormatJPEG:
		decodeConfig, decode = jpeg.DecodeConfig, jpeg.Decode
	case "":
		decodeConfig = func(r io.Reader) (image.Config, error) {
			cfg, _, err := image.DecodeConfig(r)
			return cfg, err
		}
		decode = func(r io.Reader) (image.Image, error) {
			img, _, err := image.Decode(r)
			return img, err
		}
	default:
		return nil, types.NewError(types.ErrDecode, fmt.Sprintf("unsupported snapshot format %q", format))
	}

	cfg, err := decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, invalidImage(format, data, err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > MaxPixels {
		return nil, types.NewError(types.ErrDecode,
			fmt.Sprintf("snapshot declares %dx%d pixels, exceeds limit of %d", cfg.Width, cfg.Height, MaxPixels))
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, invalidImage(format, data, err)
	}
	return img, nil
}

func invalidImage(format modeling.ImageFormat, data []byte, err error) error {
	return types.NewError(types.ErrDecode,
		fmt.Sprintf("snapshot is not a valid %s image (%d bytes)", formatName(format), len(data))).
		WithCause(err)
}

// Encode writes img to w in container c.
func Encode(w io.Writer, img image.Image, c Container) error {
	switch c {
	case ContainerPNG:
		return png.Encode(w, img)
	case ContainerJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case ContainerGIF:
		return gif.Encode(w, img, nil)
	case ContainerBMP:
		return bmp.Encode(w, img)
	case ContainerTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unknown container %q", c)
	}
}

// DecodeAndSave decodes data and writes it to path in the container implied
// by the extension. Nothing is written unless decoding succeeds, and the
// file appears atomically.
func DecodeAndSave(data []byte, format modeling.ImageFormat, path string) (*Info, error) {
	img, err := Decode(data, format)
	if err != nil {
		return nil, err
	}

	c := ContainerFor(path)
	var buf bytes.Buffer
	if err := Encode(&buf, img, c); err != nil {
		return nil, types.NewError(types.ErrIO, fmt.Sprintf("encode %s", c)).WithCause(err)
	}
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return nil, types.NewError(types.ErrIO, fmt.Sprintf("write %s", path)).WithCause(err)
	}

	b := img.Bounds()
	return &Info{
		Path:      path,
		Container: c,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Bytes:     buf.Len(),
	}, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""
	return nil
}

func formatName(f modeling.ImageFormat) string {
	if f == "" {
		return "recognised"
	}
	return string(f)
}
