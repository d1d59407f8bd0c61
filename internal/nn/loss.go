package nn

import (
	"fmt"

	"github.com/born-ml/stochnorm/internal/tensor"
)

// MSELoss computes Mean Squared Error loss.
//
// Loss = mean((predictions - targets)²)
//
// Example:
//
//	mse := nn.NewMSELoss[B](backend)
//	predictions, err := model.Forward(input)
//	loss, err := mse.Forward(predictions, targets)
type MSELoss[B tensor.Backend] struct {
	backend B
}

// NewMSELoss creates a new MSE loss function.
func NewMSELoss[B tensor.Backend](backend B) *MSELoss[B] {
	return &MSELoss[B]{
		backend: backend,
	}
}

// Forward computes the MSE loss as a tensor of shape [1].
// Predictions and targets must have the same shape (ErrInvalidShape).
func (m *MSELoss[B]) Forward(predictions, targets *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if !predictions.Shape().Equal(targets.Shape()) {
		return nil, fmt.Errorf("%w: mse predictions %v and targets %v differ", ErrInvalidShape, predictions.Shape(), targets.Shape())
	}

	diff := predictions.Sub(targets)
	squared := diff.Mul(diff)

	var sum float64
	data := squared.Data()
	for _, v := range data {
		sum += float64(v)
	}

	loss := tensor.Zeros[float32](tensor.Shape{1}, m.backend)
	loss.Data()[0] = float32(sum / float64(len(data)))
	return loss, nil
}
