package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

type session struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (s *session) destroy() {
	if s.session != nil {
		s.session.Destroy()
	}
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}

// ONNX runs an image classification model exported to ONNX. Each request
// borrows one session from a fixed pool, so the tensors are never shared.
type ONNX struct {
	pool     chan *session
	sessions []*session
	labels   []string
	topK     int
}

// NewONNX loads modelPath into n sessions. The ONNX Runtime environment must
// already be initialized.
func NewONNX(modelPath string, labels []string, topK, n int) (*ONNX, error) {
	if len(labels) == 0 {
		return nil, errors.New("no labels configured")
	}
	if n < 1 {
		n = 1
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no inputs or outputs", modelPath)
	}
	if dims := outputs[0].Dimensions; len(dims) > 0 {
		if last := dims[len(dims)-1]; last > 0 && int(last) != len(labels) {
			return nil, fmt.Errorf("model emits %d classes but %d labels are configured", last, len(labels))
		}
	}

	m := &ONNX{
		pool:   make(chan *session, n),
		labels: labels,
		topK:   topK,
	}
	for range n {
		s, err := newSession(modelPath, inputs[0].Name, outputs[0].Name, len(labels))
		if err != nil {
			m.Close()
			return nil, err
		}
		m.sessions = append(m.sessions, s)
		m.pool <- s
	}
	return m, nil
}

func newSession(modelPath, inputName, outputName string, classes int) (*session, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	s := &session{}
	s.input, err = ort.NewTensor(ort.NewShape(1, 3, ImageSize, ImageSize), make([]float32, 3*ImageSize*ImageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	s.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(classes)))
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	s.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{s.input},
		[]ort.Value{s.output},
		opts,
	)
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}
	return s, nil
}

func (m *ONNX) Classify(ctx context.Context, img image.Image) (Result, error) {
	inputData := Preprocess(img)

	var s *session
	select {
	case s = <-m.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { m.pool <- s }()

	copy(s.input.GetData(), inputData)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	logitsTensor := s.output.GetData()
	logits := make([]float32, len(logitsTensor))
	copy(logits, logitsTensor)

	return Rank(m.labels, Softmax(logits), m.topK), nil
}

func (m *ONNX) Close() {
	for _, s := range m.sessions {
		s.destroy()
	}
	m.sessions = nil
}

// ReadLabels reads one label per non-empty line.
func ReadLabels(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, l := range strings.Split(string(b), "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			labels = append(labels, l)
		}
	}
	return labels, nil
}
