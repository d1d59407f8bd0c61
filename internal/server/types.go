package server

// ModeRequest is the body of PUT /v1/mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// ModeResponse reports the root mode and every distinct mode in the tree.
type ModeResponse struct {
	Mode  string   `json:"mode"`
	Modes []string `json:"modes"`
}

// ForwardRequest is the body of POST /v1/forward.
type ForwardRequest struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// ForwardResponse carries the model output and the mode it ran in.
type ForwardResponse struct {
	Mode  string    `json:"mode"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// TensorJSON is a tensor in a response body.
type TensorJSON struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// StreamJSON describes one random stream.
type StreamJSON struct {
	Key     string `json:"key"`
	Counter uint64 `json:"counter"`
}

// StateResponse lists running statistics and random stream positions.
type StateResponse struct {
	Mode    string                `json:"mode"`
	Tensors map[string]TensorJSON `json:"tensors"`
	Streams []StreamJSON          `json:"streams,omitempty"`
}

// ErrorJSON is the error object in an error response.
type ErrorJSON struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
