package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/disintegration/imaging"
)

func testImageBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCompressImageDownsizes(t *testing.T) {
	data := testImageBytes(t, 2048, 512)

	encoded, err := CompressImage(data)
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatal(err)
	}

	img, err := imaging.Decode(bytes.NewReader(decoded))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != maxScanWidth {
		t.Fatalf("expected width %d, got %d", maxScanWidth, img.Bounds().Dx())
	}
	// Aspect ratio is preserved.
	if img.Bounds().Dy() != 256 {
		t.Fatalf("expected height 256, got %d", img.Bounds().Dy())
	}
}

func TestCompressImageKeepsSmallImages(t *testing.T) {
	data := testImageBytes(t, 640, 480)

	encoded, err := CompressImage(data)
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatal(err)
	}

	img, err := imaging.Decode(bytes.NewReader(decoded))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Fatalf("small images should not be resized, got %v", img.Bounds())
	}
}

func TestCompressImageRejectsGarbage(t *testing.T) {
	if _, err := CompressImage([]byte("not an image")); err == nil {
		t.Fatal("expected decode failure")
	}
}

func TestScanParsesWrappedJson(t *testing.T) {
	gateway := newStubGateway()
	gateway.extractText = "Here is the extracted data:\n```json\n{\"material_name\": \"Portland Cement\", \"quantity\": 20, \"unit\": \"bags\", \"priority\": \"high\", \"notes\": \"deliver friday\"}\n```\nLet me know if you need anything else."

	scanner := NewScanner(gateway)
	form, err := scanner.Scan(context.Background(), testImageBytes(t, 640, 480))
	if err != nil {
		t.Fatal(err)
	}

	if form.MaterialName != "Portland Cement" || form.Quantity != 20 || form.Unit != "bags" || form.Priority != "high" {
		t.Fatalf("invalid parsed form %+v", form)
	}
	if form.Notes != "deliver friday" {
		t.Fatalf("invalid notes '%v'", form.Notes)
	}
}

func TestScanSanitizesBadEnums(t *testing.T) {
	gateway := newStubGateway()
	gateway.extractText = `{"material_name": "Rebar", "quantity": 0, "unit": "tons", "priority": "critical"}`

	scanner := NewScanner(gateway)
	form, err := scanner.Scan(context.Background(), testImageBytes(t, 640, 480))
	if err != nil {
		t.Fatal(err)
	}

	if form.Unit != "pieces" || form.Priority != "medium" || form.Quantity != 1 {
		t.Fatalf("scan output should be sanitized, got %+v", form)
	}
}

func TestScanQuotaExceeded(t *testing.T) {
	gateway := newStubGateway()
	gateway.extractErr = errors.New("429 rate limit exceeded (limit: 0, remaining: 0)")

	scanner := NewScanner(gateway)
	_, err := scanner.Scan(context.Background(), testImageBytes(t, 640, 480))
	if !errors.Is(err, ErrScanQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestScanNoJsonInResponse(t *testing.T) {
	gateway := newStubGateway()
	gateway.extractText = "I could not read the document, please retake the photo."

	scanner := NewScanner(gateway)
	if _, err := scanner.Scan(context.Background(), testImageBytes(t, 640, 480)); err == nil {
		t.Fatal("expected error for response without json")
	}
}
