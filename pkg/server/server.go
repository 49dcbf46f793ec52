// Package server exposes a stored repository read-only over HTTP.
package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/gitstorage/pkg/storage"
	"github.com/weaveworks/gitstorage/pkg/storage/core"
)

const (
	revParam   = "rev"
	startParam = "start"
	countParam = "count"

	defaultLogCount = 10
)

// OpenFunc returns a fresh Storage at HEAD for a single request.
type OpenFunc func() (*storage.Storage, error)

// Revision is the body of GET /rev.
type Revision struct {
	Rev      string `json:"rev"`
	ShortRev string `json:"shortrev"`
}

// New returns an echo instance serving
//
//	GET /rev
//	GET /files
//	GET /listdir/<path>
//	GET /file/<path>
//	GET /pathinfo/<path>
//	GET /log?start=<rev>&count=<n>
//
// Every route but /log takes ?rev= to read another revision than HEAD.
func New(open OpenFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(e)

	h := &handlers{open: open}
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "gitstorage")
	})
	e.GET("/rev", h.rev)
	e.GET("/files", h.files)
	e.GET("/listdir", h.listdir)
	e.GET("/listdir/*", h.listdir)
	e.GET("/file/*", h.file)
	e.GET("/pathinfo", h.pathinfo)
	e.GET("/pathinfo/*", h.pathinfo)
	e.GET("/log", h.log)
	return e
}

type handlers struct {
	open OpenFunc
}

// storage opens a Storage checked out at ?rev=, or HEAD.
func (h *handlers) storage(c echo.Context) (*storage.Storage, error) {
	s, err := h.open()
	if err != nil {
		return nil, err
	}
	if rev := c.QueryParam(revParam); rev != "" {
		if err := s.Checkout(rev); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (h *handlers) rev(c echo.Context) error {
	s, err := h.storage(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &Revision{Rev: s.Rev(), ShortRev: s.ShortRev()})
}

func (h *handlers) files(c echo.Context) error {
	s, err := h.storage(c)
	if err != nil {
		return err
	}
	files, err := s.Files()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, files)
}

func (h *handlers) listdir(c echo.Context) error {
	s, err := h.storage(c)
	if err != nil {
		return err
	}
	entries, err := s.Listdir(c.Param("*"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *handlers) file(c echo.Context) error {
	s, err := h.storage(c)
	if err != nil {
		return err
	}
	content, err := s.File(c.Param("*"))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, content)
}

func (h *handlers) pathinfo(c echo.Context) error {
	s, err := h.storage(c)
	if err != nil {
		return err
	}
	info, err := s.Pathinfo(c.Param("*"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

func (h *handlers) log(c echo.Context) error {
	count := defaultLogCount
	if raw := c.QueryParam(countParam); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "count must be a non-negative integer")
		}
		count = n
	}
	s, err := h.open()
	if err != nil {
		return err
	}
	entries, err := s.Log(c.QueryParam(startParam), count)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// errorHandler maps storage errors to status codes before handing them to
// the default handler.
func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) {
			httpErr = echo.NewHTTPError(statusFor(err), err.Error())
		}
		if httpErr.Code >= http.StatusInternalServerError {
			log.Errorf("%s %s: %v", c.Request().Method, c.Request().URL, err)
		}
		e.DefaultHTTPErrorHandler(httpErr, c)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrPathNotFound),
		errors.Is(err, core.ErrRevisionNotFound),
		errors.Is(err, core.ErrRepositoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotADirectory), errors.Is(err, core.ErrNotAFile):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
