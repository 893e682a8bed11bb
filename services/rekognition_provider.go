package services

import (
	"context"
	"os"

	"github.com/Nishaa1304/GlucoSage/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// RekognitionProvider adapts AWS Rekognition label detection to the common
// provider shape. Labels carrying instance boxes become localized detections;
// bare labels cover the whole frame.
type RekognitionProvider struct {
	client *rekognition.Client
}

func NewRekognitionProvider(ctx context.Context) (*RekognitionProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		return nil, err
	}
	return &RekognitionProvider{client: rekognition.NewFromConfig(cfg)}, nil
}

func (p *RekognitionProvider) Name() string { return "rekognition" }

func (p *RekognitionProvider) Detect(ctx context.Context, imageBytes []byte) ([]RawDetection, error) {
	width, height, err := decodeImageDims(imageBytes)
	if err != nil {
		return nil, err
	}

	out, err := p.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: imageBytes},
		MaxLabels:     aws.Int32(10),
		MinConfidence: aws.Float32(50),
	})
	if err != nil {
		return nil, utils.NewUpstreamError("rekognition", err)
	}

	var raws []RawDetection
	for _, label := range out.Labels {
		if label.Name == nil {
			continue
		}
		confidence := 0.0
		if label.Confidence != nil {
			confidence = clamp01(float64(*label.Confidence) / 100)
		}

		if len(label.Instances) == 0 {
			raws = append(raws, RawDetection{
				Label:      *label.Name,
				Confidence: confidence,
				Box:        fullImageBox(width, height),
			})
			continue
		}
		for _, inst := range label.Instances {
			box := fullImageBox(width, height)
			if b := inst.BoundingBox; b != nil && b.Left != nil && b.Top != nil && b.Width != nil && b.Height != nil {
				x1 := float64(*b.Left) * float64(width)
				y1 := float64(*b.Top) * float64(height)
				box = [4]float64{
					x1, y1,
					x1 + float64(*b.Width)*float64(width),
					y1 + float64(*b.Height)*float64(height),
				}
			}
			instConfidence := confidence
			if inst.Confidence != nil {
				instConfidence = clamp01(float64(*inst.Confidence) / 100)
			}
			raws = append(raws, RawDetection{
				Label:      *label.Name,
				Confidence: instConfidence,
				Box:        box,
			})
		}
	}
	return raws, nil
}
