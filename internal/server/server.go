// Package server exposes a composed model over HTTP for inspection:
// reading and switching its mode, running forward passes and reading the
// running statistics.
package server

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/born-ml/stochnorm/internal/logger"
	"github.com/born-ml/stochnorm/internal/nn"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// Server serves one model. Every handler holds the model lock, so forward
// passes and mode switches never interleave.
type Server[B tensor.Backend] struct {
	mu      sync.Mutex
	model   nn.Module[B]
	backend B
	log     logger.Logger
}

// New creates a Server for model.
func New[B tensor.Backend](model nn.Module[B], backend B, log logger.Logger) *Server[B] {
	if log == nil {
		log = logger.Discard()
	}
	return &Server[B]{
		model:   model,
		backend: backend,
		log:     log.With("component", "server"),
	}
}

// Register mounts the API routes on e.
func (s *Server[B]) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/mode", s.handleGetMode)
	e.PUT("/v1/mode", s.handleSetMode)
	e.POST("/v1/forward", s.handleForward)
	e.GET("/v1/state", s.handleState)
}

func (s *Server[B]) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server[B]) handleGetMode(c *echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.modeResponse())
}

func (s *Server[B]) handleSetMode(c *echo.Context) error {
	req, err := decodeJSON[ModeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	mode, err := nn.ParseMode(req.Mode)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	nn.SetMode(s.model, mode)
	s.log.Info("mode changed", "mode", mode.String())
	return c.JSON(http.StatusOK, s.modeResponse())
}

func (s *Server[B]) modeResponse() ModeResponse {
	modes := nn.Modes(s.model)
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return ModeResponse{Mode: s.model.Mode().String(), Modes: names}
}

func (s *Server[B]) handleForward(c *echo.Context) error {
	req, err := decodeJSON[ForwardRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	input, err := tensor.FromSlice(req.Data, tensor.Shape(req.Shape), s.backend)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := input.Shape().Validate(); err != nil {
		return writeBadRequest(c, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mode := s.model.Mode()
	output, err := s.model.Forward(input)
	if err != nil {
		if errors.Is(err, nn.ErrInvalidShape) || errors.Is(err, nn.ErrInvalidConfig) {
			return writeBadRequest(c, err.Error())
		}
		s.log.Error("forward failed", "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	s.log.Debug("forward", "mode", mode.String(), "shape", input.Shape())

	return c.JSON(http.StatusOK, ForwardResponse{
		Mode:  mode.String(),
		Shape: []int(output.Shape().Clone()),
		Data:  slices.Clone(output.Data()),
	})
}

func (s *Server[B]) handleState(c *echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StateResponse{
		Mode:    s.model.Mode().String(),
		Tensors: map[string]TensorJSON{},
	}
	for name, raw := range s.model.StateDict() {
		if !strings.Contains(name, "running_") {
			continue
		}
		resp.Tensors[name] = TensorJSON{
			Shape: []int(raw.Shape().Clone()),
			Data:  slices.Clone(raw.AsFloat32()),
		}
	}
	nn.Walk(s.model, func(m nn.Module[B]) {
		if st, ok := m.(nn.Stochastic); ok && st.Stream() != nil {
			resp.Streams = append(resp.Streams, StreamJSON{
				Key:     st.Stream().Key().String(),
				Counter: st.Stream().Counter(),
			})
		}
	})
	return c.JSON(http.StatusOK, resp)
}

const maxRequestBytes = 32 << 20

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorJSON{
			Message: msg,
			Type:    errType,
		},
	})
}
