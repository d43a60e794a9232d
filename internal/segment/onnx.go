package segment

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/sync/semaphore"
)

// OnnxSession runs one U2-Net family model through ONNX Runtime.
// Input/output tensors are allocated once and shared, so Run is serialized with sem.
// A caller whose ctx ends while waiting for sem gives up without running inference.
type OnnxSession struct {
	id      model.ModelID
	sem     *semaphore.Weighted
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewOnnxLoader returns a Loader that resolves weights in modelDir (downloading them from src when missing)
// and opens an ONNX Runtime session for them.
func NewOnnxLoader(modelDir string, src WeightsSource) Loader {
	return func(ctx context.Context, id model.ModelID) (Session, error) {
		if !ort.IsInitialized() {
			return nil, errors.New("ONNX Runtime environment is not initialized")
		}

		path, err := EnsureWeights(ctx, modelDir, id, src)
		if err != nil {
			return nil, err
		}
		return NewOnnxSession(id, path)
	}
}

func NewOnnxSession(id model.ModelID, onnxPath string) (*OnnxSession, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(onnxPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %q has no inputs or outputs", id)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, InputSize, InputSize), make([]float32, 3*InputSize*InputSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	// из всех выходов U2-Net нужен только первый (d0)
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, InputSize, InputSize))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		onnxPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}

	return &OnnxSession{
		id:      id,
		sem:     semaphore.NewWeighted(1),
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

func (s *OnnxSession) Model() model.ModelID {
	return s.id
}

func (s *OnnxSession) Segment(ctx context.Context, img image.Image, opts Options) (image.Image, error) {
	if img == nil {
		return nil, errors.New("nil image provided to Segment")
	}
	if img.Bounds().Empty() {
		return nil, errors.New("empty image provided to Segment")
	}

	data := toTensor(img)

	pred, err := s.run(ctx, data)
	if err != nil {
		return nil, err
	}

	mask := resizeMask(maskFromPrediction(pred, InputSize, InputSize), img.Bounds())
	if opts.AlphaMatting {
		mask = refineAlpha(mask)
	}
	return cutout(img, mask), nil
}

func (s *OnnxSession) run(ctx context.Context, data []float32) ([]float32, error) {
	// зависший прогон держит sem, ожидающие отваливаются по своему ctx
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	copy(s.input.GetData(), data)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	raw := s.output.GetData()
	pred := make([]float32, len(raw))
	copy(pred, raw)
	return pred, nil
}

func (s *OnnxSession) Close() error {
	_ = s.sem.Acquire(context.Background(), 1)
	defer s.sem.Release(1)

	return errors.Join(s.session.Destroy(), s.input.Destroy(), s.output.Destroy())
}
