package convert

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/evanoberholster/imagemeta/imagetype"
	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"nestling/internal/logging"
	"nestling/internal/pipeline"
	"nestling/internal/services"
	"nestling/internal/textutil"
)

// Config carries the converter's environment.
type Config struct {
	// StagingDir is where converted JPEGs are written. It must exist.
	StagingDir string
	// Platform is "native" or "web". On web there is no HEIC decode path
	// at all; on native, ffmpeg is used when present.
	Platform string
}

// ImageConverter implements pipeline.Converter with pure-Go decoding for
// JPEG, PNG, GIF, WebP, BMP, and TIFF, plus an ffmpeg path for HEIC/HEIF
// on the native platform.
type ImageConverter struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs a converter writing into cfg.StagingDir.
func New(cfg Config, logger *slog.Logger) *ImageConverter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ImageConverter{cfg: cfg, logger: logger}
}

// Convert decodes the source image, scales it down to opts.MaxDimension if
// needed, and encodes a JPEG at opts.Quality into the staging directory.
func (c *ImageConverter) Convert(ctx context.Context, sourceRef string, opts pipeline.ConvertOptions) (pipeline.ConvertResult, error) {
	path := LocalPath(sourceRef)
	f, err := os.Open(path)
	if err != nil {
		return pipeline.ConvertResult{}, fmt.Errorf("open source image: %w", err)
	}
	defer f.Close()

	kind, err := imagetype.Scan(f)
	if err != nil {
		return pipeline.ConvertResult{}, fmt.Errorf("sniff image type: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return pipeline.ConvertResult{}, fmt.Errorf("rewind source image: %w", err)
	}

	var img image.Image
	switch kind {
	case imagetype.ImageHEIF, imagetype.ImageAVIF:
		img, err = c.decodeHEIC(ctx, path, sourceRef)
	default:
		img, _, err = image.Decode(f)
		if err != nil {
			err = &services.ConversionError{Platform: c.cfg.Platform, SourceURI: sourceRef, Err: err}
		}
	}
	if err != nil {
		return pipeline.ConvertResult{}, err
	}

	if err := ctx.Err(); err != nil {
		return pipeline.ConvertResult{}, err
	}

	img = scaleDown(img, opts.MaxDimension)
	bounds := img.Bounds()

	fileName := textutil.SanitizeFileName(path)
	out, err := os.CreateTemp(c.cfg.StagingDir, "*-"+fileName)
	if err != nil {
		return pipeline.ConvertResult{}, fmt.Errorf("create staging file: %w", err)
	}
	defer out.Close()

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: quality}); err != nil {
		os.Remove(out.Name())
		return pipeline.ConvertResult{}, &services.ConversionError{Platform: c.cfg.Platform, SourceURI: sourceRef, Err: err}
	}
	info, err := out.Stat()
	if err != nil {
		return pipeline.ConvertResult{}, fmt.Errorf("stat staging file: %w", err)
	}

	c.logger.Debug("image converted",
		logging.String(logging.FieldEventType, "convert_complete"),
		logging.String("source", sourceRef),
		logging.String("staged", out.Name()),
		logging.String("format", kind.String()),
		logging.Int64("bytes", info.Size()),
	)

	return pipeline.ConvertResult{
		URI:      out.Name(),
		Bytes:    info.Size(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		FileName: fileName,
	}, nil
}

// decodeHEIC handles Apple's container formats. There is no pure-Go decoder,
// so the web platform fails immediately with a HEIC-specific error; the
// native platform shells out to ffmpeg when it is installed.
func (c *ImageConverter) decodeHEIC(ctx context.Context, path, sourceRef string) (image.Image, error) {
	if strings.EqualFold(c.cfg.Platform, "web") {
		return nil, &services.ConversionError{IsHEIC: true, Platform: c.cfg.Platform, SourceURI: sourceRef}
	}
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, &services.ConversionError{IsHEIC: true, Platform: c.cfg.Platform, SourceURI: sourceRef,
			Err: fmt.Errorf("ffmpeg not found")}
	}

	tmp, err := os.CreateTemp(c.cfg.StagingDir, "heic-*.png")
	if err != nil {
		return nil, fmt.Errorf("create temp frame: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", path,
		"-frames:v", "1",
		"-y", tmpPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, &services.ConversionError{IsHEIC: true, Platform: c.cfg.Platform, SourceURI: sourceRef,
			Err: fmt.Errorf("ffmpeg decode failed: %w: %s", err, strings.TrimSpace(string(output)))}
	}

	frame, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open decoded frame: %w", err)
	}
	defer frame.Close()
	img, _, err := image.Decode(frame)
	if err != nil {
		return nil, &services.ConversionError{IsHEIC: true, Platform: c.cfg.Platform, SourceURI: sourceRef, Err: err}
	}
	return img, nil
}

// scaleDown resizes img so neither dimension exceeds maxDimension,
// preserving aspect ratio. Images already small enough pass through.
func scaleDown(img image.Image, maxDimension int) image.Image {
	if maxDimension <= 0 {
		return img
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return img
	}

	newWidth, newHeight := fitDimensions(width, height, maxDimension)
	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

func fitDimensions(width, height, maxDimension int) (int, int) {
	if width > height {
		return maxDimension, int(float64(height) * float64(maxDimension) / float64(width))
	}
	return int(float64(width) * float64(maxDimension) / float64(height)), maxDimension
}

// LocalPath strips an optional file:// scheme from a source reference.
func LocalPath(ref string) string {
	if strings.HasPrefix(ref, "file://") {
		return filepath.FromSlash(strings.TrimPrefix(ref, "file://"))
	}
	return ref
}
