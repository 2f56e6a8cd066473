package coach

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MaxImageBytes bounds a decoded inline image.
const MaxImageBytes = 5 << 20

// DefaultImagePrompt is sent when the user posts a photo without text.
const DefaultImagePrompt = "Identify the food(s) in this image for my nutrition log."

// UnreadableImagePrompt replaces the text of a photo-only turn whose image
// could not be decoded.
const UnreadableImagePrompt = "I tried to send a photo of my food for my nutrition log, but it could not be read."

var supportedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
	"image/heif": "heif",
}

var errNotDataURL = errors.New("image is not a base64 data URL")

// Image is a decoded inline image.
type Image struct {
	MIMEType string
	Data     []byte
}

// Extension returns the file extension for the image type.
func (i *Image) Extension() string {
	return supportedImageTypes[i.MIMEType]
}

// Part is one piece of a model turn: text or inline image, never both.
type Part struct {
	Text  string
	Image *Image
}

// ParseDataURL decodes "data:<mime>;base64,<payload>".
func ParseDataURL(s string) (*Image, error) {
	s = strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, errNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errNotDataURL
	}
	mimeType, enc, ok := strings.Cut(meta, ";")
	if !ok || enc != "base64" {
		return nil, errNotDataURL
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "image/jpg" {
		mimeType = "image/jpeg"
	}
	if _, ok := supportedImageTypes[mimeType]; !ok {
		return nil, fmt.Errorf("unsupported image type %q", mimeType)
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image payload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("image payload is empty")
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	return &Image{MIMEType: mimeType, Data: data}, nil
}

// BuildParts orders the new turn as text first, then the image. A turn with
// an image but no text gets DefaultImagePrompt so there is always a text part.
func BuildParts(text string, img *Image) ([]Part, error) {
	text = strings.TrimSpace(text)

	parts := make([]Part, 0, 2)
	switch {
	case text != "":
		parts = append(parts, Part{Text: text})
	case img != nil:
		parts = append(parts, Part{Text: DefaultImagePrompt})
	default:
		return nil, ErrEmptyContent
	}

	if img != nil {
		parts = append(parts, Part{Image: img})
	}
	return parts, nil
}
