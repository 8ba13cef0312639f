package rekognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	jpegQuality  = 90
)

// Detector implements provider.Detector with the Rekognition DetectFaces API
type Detector struct {
	api           DetectFacesAPI
	minConfidence float32
}

var _ provider.Detector = (*Detector)(nil)

// NewDetector creates a detector backed by the AWS SDK client
func NewDetector(ctx context.Context, cfg Config) (*Detector, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewDetectorWithAPI(client, cfg), nil
}

// NewDetectorWithAPI creates a detector over any DetectFacesAPI implementation
func NewDetectorWithAPI(api DetectFacesAPI, cfg Config) *Detector {
	return &Detector{api: api, minConfidence: cfg.MinConfidence}
}

// Detect encodes the frame as JPEG and converts Rekognition's relative
// bounding boxes into pixel coordinates of img.
func (d *Detector) Detect(ctx context.Context, img image.Image, _ int) ([]domain.BoundingBox, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, domain.ErrDetectionFailed.WithError(fmt.Errorf("%w: %v", ErrInvalidImage, err))
	}
	if buf.Len() > maxImageSize {
		return nil, domain.ErrDetectionFailed.WithError(
			fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, buf.Len(), maxImageSize))
	}

	output, err := d.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: buf.Bytes()},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, domain.ErrDetectionFailed.WithError(fmt.Errorf("detect faces: %w", mapAPIError(err)))
	}

	bounds := img.Bounds()
	boxes := make([]domain.BoundingBox, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		if aws.ToFloat32(detail.Confidence) < d.minConfidence {
			continue
		}
		boxes = append(boxes, toPixels(detail.BoundingBox, bounds))
	}

	return boxes, nil
}

func (d *Detector) Close() error {
	return nil
}

// toPixels scales a ratio box to bounds. Rekognition may report boxes that
// extend past the frame; clamping is left to the cropper.
func toPixels(box *types.BoundingBox, bounds image.Rectangle) domain.BoundingBox {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	left := float64(aws.ToFloat32(box.Left)) * w
	top := float64(aws.ToFloat32(box.Top)) * h
	width := float64(aws.ToFloat32(box.Width)) * w
	height := float64(aws.ToFloat32(box.Height)) * h

	return domain.BoundingBox{
		Left:   bounds.Min.X + int(math.Round(left)),
		Top:    bounds.Min.Y + int(math.Round(top)),
		Right:  bounds.Min.X + int(math.Round(left+width)),
		Bottom: bounds.Min.Y + int(math.Round(top+height)),
	}
}
