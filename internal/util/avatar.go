package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"gamemate-server/internal/config"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

const avatarSize = 256

// SaveAvatar decodes an uploaded image, scales it down to the avatar box
// and stores it as lossless webp under uploads/avatars/<subject>.webp.
// Returns the content hash used for cache busting.
func SaveAvatar(subjectID string, r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}

	img = scaleDown(img, avatarSize)

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return "", fmt.Errorf("encoding webp: %w", err)
	}

	dir := filepath.Join(config.Conf.UploadsDir, "avatars")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, subjectID+".webp")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", err
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:8]), nil
}

// scaleDown fits an image into a max×max box, preserving aspect ratio.
// Images already inside the box pass through untouched.
func scaleDown(img image.Image, max int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= max && h <= max {
		return img
	}

	if w > h {
		h = h * max / w
		w = max
	} else {
		w = w * max / h
		h = max
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// AvatarPath returns the stored avatar file for a subject, or "" when none
// exists.
func AvatarPath(subjectID string) string {
	if subjectID == "" {
		return ""
	}

	path := filepath.Join(config.Conf.UploadsDir, "avatars", subjectID+".webp")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
