package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/stochnorm/internal/tensor"
)

// CrossEntropyLoss computes cross-entropy loss for multi-class classification.
//
// Loss = mean over the batch of -log_softmax(logits)[target], computed with
// the log-sum-exp trick so large logits do not overflow.
//
// Example:
//
//	criterion := nn.NewCrossEntropyLoss[B](backend)
//	logits, err := model.Forward(input)            // [batch_size, num_classes]
//	loss, err := criterion.Forward(logits, labels) // labels: class index per row
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{
		backend: backend,
	}
}

// Forward computes the mean cross-entropy as a tensor of shape [1].
func (c *CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], targets []int) (*tensor.Tensor[float32, B], error) {
	batchSize, numClasses, err := classShape(logits, targets)
	if err != nil {
		return nil, err
	}

	data := logits.Data()
	var total float64
	for b := 0; b < batchSize; b++ {
		logProbs := logSoftmax(data[b*numClasses : (b+1)*numClasses])
		total -= float64(logProbs[targets[b]])
	}

	loss := tensor.Zeros[float32](tensor.Shape{1}, c.backend)
	loss.Data()[0] = float32(total / float64(batchSize))
	return loss, nil
}

// logSoftmax computes log(softmax(z)) in a numerically stable way:
//
//	LogSoftmax(z)[i] = z[i] - (max(z) + log(Σ exp(z - max(z))))
func logSoftmax(z []float32) []float32 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}

	var sumExp float64
	for _, v := range z {
		sumExp += math.Exp(float64(v - maxZ))
	}
	logSumExp := maxZ + float32(math.Log(sumExp))

	result := make([]float32, len(z))
	for i, v := range z {
		result[i] = v - logSumExp
	}
	return result
}

// argmax returns the index of the maximum value in the slice.
func argmax(z []float32) int {
	maxIdx := 0
	for i := 1; i < len(z); i++ {
		if z[i] > z[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

// Argmax returns the predicted class of every row of logits [batch_size, num_classes].
func Argmax[B tensor.Backend](logits *tensor.Tensor[float32, B]) ([]int, error) {
	shape := logits.Shape()
	if len(shape) != 2 || shape[1] == 0 {
		return nil, fmt.Errorf("%w: logits must be [batch_size, num_classes], got %v", ErrInvalidShape, shape)
	}

	data := logits.Data()
	out := make([]int, shape[0])
	for b := range out {
		out[b] = argmax(data[b*shape[1] : (b+1)*shape[1]])
	}
	return out, nil
}

// Accuracy returns the fraction of rows whose argmax equals the target class.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets []int) (float32, error) {
	batchSize, _, err := classShape(logits, targets)
	if err != nil {
		return 0, err
	}
	predicted, err := Argmax(logits)
	if err != nil {
		return 0, err
	}

	correct := 0
	for b, p := range predicted {
		if p == targets[b] {
			correct++
		}
	}
	return float32(correct) / float32(batchSize), nil
}

// classShape validates logits [batch_size, num_classes] against one target
// class index per row.
func classShape[B tensor.Backend](logits *tensor.Tensor[float32, B], targets []int) (int, int, error) {
	shape := logits.Shape()
	if len(shape) != 2 || shape[0] == 0 || shape[1] == 0 {
		return 0, 0, fmt.Errorf("%w: logits must be [batch_size, num_classes], got %v", ErrInvalidShape, shape)
	}
	if len(targets) != shape[0] {
		return 0, 0, fmt.Errorf("%w: %d targets for batch size %d", ErrInvalidShape, len(targets), shape[0])
	}
	for b, target := range targets {
		if target < 0 || target >= shape[1] {
			return 0, 0, fmt.Errorf("%w: target %d of sample %d outside [0, %d)", ErrInvalidShape, target, b, shape[1])
		}
	}
	return shape[0], shape[1], nil
}
