package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"github.com/samcharles93/beam/internal/inference"
	"github.com/samcharles93/beam/internal/logger"
	"github.com/samcharles93/beam/internal/metrics"
	"github.com/samcharles93/beam/internal/version"
	"github.com/samcharles93/beam/internal/webui"
)

type Server struct {
	store  *DecodeStore
	engine inference.Engine
	clock  func() time.Time
	sem    *semaphore.Weighted
	webui  bool
}

type ServerOption func(*Server)

// WithMaxConcurrent bounds the number of searches running at once. Further
// requests wait for a slot until their context ends.
func WithMaxConcurrent(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithWebUI serves the embedded decode page at /.
func WithWebUI() ServerOption {
	return func(s *Server) { s.webui = true }
}

func NewServer(store *DecodeStore, engine inference.Engine, opts ...ServerOption) *Server {
	if store == nil {
		store = NewDecodeStore(0)
	}
	s := &Server{
		store:  store,
		engine: engine,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/decode", s.handleDecode)
	e.GET("/v1/decode/:id", s.handleGetDecode)
	e.DELETE("/v1/decode/:id", s.handleDeleteDecode)
	e.GET("/v1/params", s.handleParams)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if s.webui {
		e.GET("/", echo.WrapHandler(http.FileServer(webui.StaticFS())))
	}
}

func observeRequest(route string, code *int) {
	metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(*code)).Inc()
}

func (s *Server) handleDecode(c *echo.Context) error {
	code := http.StatusOK
	defer observeRequest("decode", &code)

	if s.engine == nil {
		code = http.StatusInternalServerError
		return writeError(c, code, "server_error", "decode engine not configured", "", "")
	}
	req, err := decodeJSON[DecodeRequest](c.Request().Body)
	if err != nil {
		code = http.StatusBadRequest
		return writeBadRequest(c, err.Error(), "")
	}
	if err := req.validate(); err != nil {
		code = http.StatusBadRequest
		return writeBadRequest(c, err.Error(), invalidParam(err))
	}

	ctx := c.Request().Context()
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			code = http.StatusServiceUnavailable
			return writeError(c, code, "server_error", "no decode slot available: "+err.Error(), "", "server_busy")
		}
		defer s.sem.Release(1)
	}

	id := newDecodeID()
	created := s.clock().Unix()
	var (
		stream   *SSEStreamWriter
		progress inference.ProgressFunc
	)
	if req.Stream {
		if stream, err = NewSSEStreamWriter(c, id); err != nil {
			code = http.StatusBadRequest
			return writeBadRequest(c, err.Error(), "stream")
		}
		progress = stream.Step
	}

	res, err := s.engine.Decode(ctx, req.engineRequest(), progress)
	if err != nil {
		status, errType := decodeErrorStatus(err)
		code = status
		logger.FromContext(ctx).Warn("decode request failed", "id", id, "status", status, "error", err)
		if stream != nil {
			return stream.Fail(ResponseError{Message: err.Error(), Type: errType})
		}
		return writeError(c, status, errType, err.Error(), "", "")
	}

	resp := DecodeResponse{
		ID:        id,
		Object:    "decode",
		CreatedAt: created,
		Results:   decodeResults(res, len(req.Text) > 0),
		Steps:     res.Stats.Steps,
		EarlyStop: res.EarlyStop,
		Usage:     decodeUsage(res),
	}
	if req.Store == nil || *req.Store {
		s.store.Put(resp)
	}
	if stream != nil {
		return stream.Complete(resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func decodeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, inference.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func (s *Server) handleGetDecode(c *echo.Context) error {
	code := http.StatusOK
	defer observeRequest("get_decode", &code)

	resp, ok := s.store.Get(c.Param("id"))
	if !ok {
		code = http.StatusNotFound
		return writeNotFound(c, "decode not found")
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteDecode(c *echo.Context) error {
	code := http.StatusOK
	defer observeRequest("delete_decode", &code)

	id := c.Param("id")
	if !s.store.Delete(id) {
		code = http.StatusNotFound
		return writeNotFound(c, "decode not found")
	}
	return c.JSON(http.StatusOK, DeleteResponse{ID: id, Object: "decode.deleted", Deleted: true})
}

func (s *Server) handleParams(c *echo.Context) error {
	code := http.StatusOK
	defer observeRequest("params", &code)

	if s.engine == nil {
		code = http.StatusInternalServerError
		return writeError(c, code, "server_error", "decode engine not configured", "", "")
	}
	p, cfg := s.engine.Params(), s.engine.Config()
	return c.JSON(http.StatusOK, ParamsResponse{
		Object:       "params",
		BeamSize:     cfg.BeamSize,
		TopBeams:     cfg.TopBeams,
		DecodeAlpha:  cfg.Alpha,
		DecodeLength: cfg.DecodeLength,
		Pad:          p.Pad,
		BOS:          p.BOS,
		EOS:          p.EOS,
		UNK:          p.UNK,
		PadID:        cfg.PadID,
		BOSID:        cfg.BOSID,
		EOSID:        cfg.EOSID,
		VocabSize:    s.engine.Vocab().Len(),
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version.String()})
}
