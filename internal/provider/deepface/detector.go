package deepface

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
)

const jpegQuality = 90

// Detector implements provider.Detector using a DeepFace HTTP service.
type Detector struct {
	client      *Client
	minFaceSize int
}

var _ provider.Detector = (*Detector)(nil)

func NewDetector(config Config) *Detector {
	return &Detector{
		client:      NewClient(config),
		minFaceSize: config.MinFaceSize,
	}
}

// Detect sends the frame as JPEG and returns the facial areas in pixel
// coordinates of img. The image is expected upright already, so rotation
// is ignored.
func (d *Detector) Detect(ctx context.Context, img image.Image, _ int) ([]domain.BoundingBox, error) {
	uri, err := encodeDataURI(img)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Represent(ctx, uri)
	if err != nil {
		return nil, domain.ErrDetectionFailed.WithError(err)
	}

	origin := img.Bounds().Min
	boxes := make([]domain.BoundingBox, 0, len(resp.Results))
	for _, result := range resp.Results {
		area := result.FacialArea
		// with enforce_detection off, deepface answers a miss with the
		// whole frame and zero confidence
		if result.FaceConfidence <= 0 {
			continue
		}
		if min(area.W, area.H) < d.minFaceSize {
			continue
		}
		boxes = append(boxes, domain.BoundingBox{
			Left:   origin.X + area.X,
			Top:    origin.Y + area.Y,
			Right:  origin.X + area.X + area.W,
			Bottom: origin.Y + area.Y + area.H,
		})
	}

	return boxes, nil
}

func (d *Detector) Close() error {
	d.client.httpClient.CloseIdleConnections()
	return nil
}

func encodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
