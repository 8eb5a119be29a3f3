// Package viewer serves previously rendered chart artifacts over HTTP
// for local browsing. Strictly read-only: it lists and serves files
// from the artifact directory and nothing else. This is not an
// ingestion surface.
package viewer

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ArtifactInfo describes one rendered artifact in the index.
type ArtifactInfo struct {
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Server is the read-only artifact viewer.
type Server struct {
	echo *echo.Echo
	dir  string
}

// New creates a viewer serving artifacts from dir.
func New(dir string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, dir: dir}

	e.GET("/healthz", s.health)
	e.GET("/artifacts", s.index)
	e.GET("/artifacts/:name", s.artifact)

	return s
}

// Handler exposes the HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down cleanly.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// index lists rendered artifacts, name ascending.
func (s *Server) index(c echo.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusOK, []ArtifactInfo{})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read artifact directory")
	}

	artifacts := []ArtifactInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, ArtifactInfo{
			Name:     entry.Name(),
			URL:      "/artifacts/" + entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		})
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })

	return c.JSON(http.StatusOK, artifacts)
}

// artifact serves one rendered chart file.
func (s *Server) artifact(c echo.Context) error {
	name := c.Param("name")

	// Only flat .html names: no traversal, no directories
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".html") {
		return echo.NewHTTPError(http.StatusNotFound, "no such artifact")
	}

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no such artifact")
	}
	return c.File(path)
}
