package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
)

// maxScanWidth bounds the uploaded image size, field photos straight from a
// phone camera are far larger than the scanner needs.
const maxScanWidth = 1024

const scanJpegQuality = 70

// ErrScanQuotaExceeded is returned when the extraction backend reports its
// free tier quota is spent.
var ErrScanQuotaExceeded = errors.New("AI scanning quota exhausted. Please try again later.")

// jsonObjectPattern grabs everything from the first opening brace to the last
// closing brace, models tend to wrap the JSON in prose or markdown fences.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// CompressImage downsizes a photo for scanning and returns it as base64
// encoded JPEG. EXIF orientation is applied so rotated phone photos come out
// upright.
func CompressImage(data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("error decoding image: %w", err)
	}

	if img.Bounds().Dx() > maxScanWidth {
		img = imaging.Resize(img, maxScanWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(scanJpegQuality)); err != nil {
		return "", fmt.Errorf("error encoding image: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Scanner turns a photo of a delivery note or material list into a prefilled
// request form.
type Scanner struct {
	gateway Gateway
}

func NewScanner(gateway Gateway) *Scanner {
	return &Scanner{gateway: gateway}
}

func (s *Scanner) Scan(ctx context.Context, imageData []byte) (IntakeForm, error) {
	compressed, err := CompressImage(imageData)
	if err != nil {
		return IntakeForm{}, err
	}

	text, err := s.gateway.ExtractDocument(ctx, compressed)
	if err != nil {
		// The extraction backend surfaces exhausted free tier quota as a
		// rate limit error containing "limit: 0".
		if strings.Contains(err.Error(), "limit: 0") {
			return IntakeForm{}, ErrScanQuotaExceeded
		}
		return IntakeForm{}, err
	}

	raw := jsonObjectPattern.FindString(text)
	if raw == "" {
		return IntakeForm{}, errors.New("no structured data found in scan response")
	}

	var fields ScannedFields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return IntakeForm{}, fmt.Errorf("error parsing scan response: %w", err)
	}

	return SanitizeScan(fields), nil
}
