package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/fitskit/internal/docstore"
	"github.com/samcharles93/fitskit/internal/fits"
	"github.com/samcharles93/fitskit/internal/logger"
	"github.com/samcharles93/fitskit/internal/preview"
	"github.com/samcharles93/fitskit/internal/wcs"
)

const DefaultPreviewWidth = 512

type ServerConfig struct {
	// PreviewWidth is used when a preview request has no width parameter.
	PreviewWidth int
	// LoadTimeout bounds how long a request waits for a document to decode.
	LoadTimeout time.Duration
	Logger      logger.Logger
}

type Server struct {
	store *docstore.Store
	cfg   ServerConfig
	log   logger.Logger
}

func NewServer(store *docstore.Store, cfg ServerConfig) *Server {
	if store == nil {
		store = docstore.New(docstore.Config{})
	}
	if cfg.PreviewWidth <= 0 {
		cfg.PreviewWidth = DefaultPreviewWidth
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Server{
		store: store,
		cfg:   cfg,
		log:   cfg.Logger,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/documents", s.handleLoadDocument)
	e.GET("/v1/documents", s.handleListDocuments)
	e.GET("/v1/documents/:id", s.handleGetDocument)
	e.DELETE("/v1/documents/:id", s.handleDeleteDocument)

	e.GET("/v1/documents/:id/hdus/:index/header", s.handleHeader)
	e.GET("/v1/documents/:id/hdus/:index/data", s.handleData)
	e.GET("/v1/documents/:id/hdus/:index/preview.png", s.handlePreview)
	e.GET("/v1/documents/:id/hdus/:index/wcs", s.handleWCS)
}

func (s *Server) handleLoadDocument(c *echo.Context) error {
	req, err := decodeJSON[LoadDocumentReq](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if strings.TrimSpace(req.Path) == "" {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", "path is required", "path")
	}

	ctx := c.Request().Context()
	if s.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
		defer cancel()
	}
	entry, err := s.store.Load(ctx, req.Path)
	if err != nil {
		s.log.Warn("load document failed", "path", req.Path, "error", err)
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, summarize(entry))
}

func (s *Server) handleListDocuments(c *echo.Context) error {
	entries := s.store.List()
	out := DocumentList{Object: "list", Data: make([]DocumentSummary, 0, len(entries))}
	for _, e := range entries {
		out.Data = append(out.Data, summarize(e))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetDocument(c *echo.Context) error {
	entry, err := s.store.Get(c.Param("id"))
	if err != nil {
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, summarize(entry))
}

func (s *Server) handleDeleteDocument(c *echo.Context) error {
	id := c.Param("id")
	if err := s.store.Close(id); err != nil {
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, DeleteDocumentResp{
		ID:      id,
		Object:  "document",
		Deleted: true,
	})
}

func (s *Server) handleHeader(c *echo.Context) error {
	_, hdu, index, err := s.resolveHDU(c)
	if err != nil {
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, NewHeaderResp(index, hdu))
}

func (s *Server) handleData(c *echo.Context) error {
	_, hdu, index, err := s.resolveHDU(c)
	if err != nil {
		return writeFailure(c, err)
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		return writeFailure(c, err)
	}
	limit, err := intQuery(c, "limit", DefaultDataLimit)
	if err != nil {
		return writeFailure(c, err)
	}
	window, err := NewDataWindow(index, hdu, offset, limit)
	if err != nil {
		return writeFailure(c, err)
	}
	return writeJSONStream(c, http.StatusOK, window)
}

func (s *Server) handlePreview(c *echo.Context) error {
	entry, hdu, index, err := s.resolveHDU(c)
	if err != nil {
		return writeFailure(c, err)
	}
	width, err := intQuery(c, "width", s.cfg.PreviewWidth)
	if err != nil {
		return writeFailure(c, err)
	}
	plane, err := intQuery(c, "plane", 0)
	if err != nil {
		return writeFailure(c, err)
	}
	img, ok := hdu.Image()
	if !ok {
		return writeFailure(c, fmt.Errorf("HDU %d: %w", index, ErrNoData))
	}

	key := fmt.Sprintf("preview/%d/%d/%d", index, width, plane)
	v, err := entry.Derived(key, func() (any, error) {
		gray, err := preview.Render(img, preview.Options{Width: width, Plane: plane})
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := preview.EncodePNG(&buf, gray); err != nil {
			return nil, err
		}
		s.log.Debug("preview rendered", "id", entry.ID, "hdu", index, "width", width, "bytes", buf.Len())
		return buf.Bytes(), nil
	})
	if err != nil {
		return writeFailure(c, err)
	}

	png := v.([]byte)
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "image/png")
	res.Header().Set("Content-Length", strconv.Itoa(len(png)))
	res.WriteHeader(http.StatusOK)
	_, err = res.Write(png)
	return err
}

func (s *Server) handleWCS(c *echo.Context) error {
	_, hdu, _, err := s.resolveHDU(c)
	if err != nil {
		return writeFailure(c, err)
	}
	x, err := floatQuery(c, "x")
	if err != nil {
		return writeFailure(c, err)
	}
	y, err := floatQuery(c, "y")
	if err != nil {
		return writeFailure(c, err)
	}
	l, err := wcs.FromHeader(hdu.Header)
	if err != nil {
		return writeFailure(c, err)
	}
	a, b := l.PixelToWorld(x, y)
	return c.JSON(http.StatusOK, WCSResp{
		X:     x,
		Y:     y,
		World: [2]float64{a, b},
		CType: l.CType,
		CUnit: l.CUnit,
	})
}

func (s *Server) resolveHDU(c *echo.Context) (*docstore.Entry, *fits.HDU, int, error) {
	entry, err := s.store.Get(c.Param("id"))
	if err != nil {
		return nil, nil, 0, err
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return nil, nil, 0, newInvalidRequest("hdu index must be an integer")
	}
	hdu, ok := entry.Document().HDU(index)
	if !ok {
		return nil, nil, 0, fmt.Errorf("%w: index %d of %d", ErrNoHDU, index, entry.Document().HDUCount())
	}
	return entry, hdu, index, nil
}

func summarize(e *docstore.Entry) DocumentSummary {
	return NewDocumentSummary(e.ID, e.Path, e.LoadedAt, e.Document())
}
