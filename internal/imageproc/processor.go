// Package imageproc applies a segmentation session to one uploaded image and encodes the transparent result.
package imageproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/segment"
	"github.com/disintegration/imaging"
)

// Processor turns one SourceImage into a ProcessedResult or a per-item error. It never retries.
type Processor struct {
	// ItemTimeout ограничивает вызов сегментации; 0 - без ограничения
	ItemTimeout time.Duration
}

func NewProcessor(itemTimeout time.Duration) *Processor {
	return &Processor{ItemTimeout: itemTimeout}
}

func (p *Processor) Process(ctx context.Context, src model.SourceImage, sess segment.Session, opts model.BatchOptions) (*model.ProcessedResult, *model.ItemError) {
	img, err := Decode(src.Data)
	if err != nil {
		return nil, &model.ItemError{Kind: model.KindDecode, Item: src.Filename, Detail: err.Error()}
	}

	out, err := p.segment(ctx, sess, img, segment.Options{AlphaMatting: opts.AlphaMatting})
	if err != nil {
		kind := model.KindInference
		if errors.Is(err, context.DeadlineExceeded) {
			kind = model.KindTimeout
		}
		return nil, &model.ItemError{Kind: kind, Item: src.Filename, Detail: err.Error()}
	}

	payload, err := EncodePNG(out)
	if err != nil {
		return nil, &model.ItemError{Kind: model.KindEncode, Item: src.Filename, Detail: err.Error()}
	}

	return &model.ProcessedResult{
		Filename: src.Filename,
		Image:    out,
		Payload:  payload,
		Success:  true,
	}, nil
}

func (p *Processor) segment(ctx context.Context, sess segment.Session, img image.Image, opts segment.Options) (image.Image, error) {
	if sess == nil {
		return nil, errors.New("nil session provided")
	}
	if p.ItemTimeout <= 0 {
		return safeSegment(ctx, sess, img, opts)
	}

	ctx, cancel := context.WithTimeout(ctx, p.ItemTimeout)
	defer cancel()

	type result struct {
		img image.Image
		err error
	}
	// буфер на 1, чтобы зависшая сегментация не держала горутину после таймаута
	done := make(chan result, 1)
	go func() {
		out, err := safeSegment(ctx, sess, img, opts)
		done <- result{img: out, err: err}
	}()

	select {
	case r := <-done:
		return r.img, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("segmentation exceeded %v: %w", p.ItemTimeout, ctx.Err())
	}
}

func safeSegment(ctx context.Context, sess segment.Session, img image.Image, opts segment.Options) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("segmentation panicked: %v", r)
		}
	}()

	out, err = sess.Segment(ctx, img, opts)
	if err == nil && out == nil {
		err = errors.New("segmentation returned no image")
	}
	return out, err
}

// Decode sniffs the format from content, not from the file extension.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to DEcode source image: %w", err)
	}
	return img, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image provided to encoder")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to ENcode result image: %w", err)
	}
	return buf.Bytes(), nil
}
