// Package server is the HTML form front end: pick a crew, fill in its
// fields, run it and download the result.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/zen-systems/crewforge/pkg/export"
	"github.com/zen-systems/crewforge/pkg/present"
	"github.com/zen-systems/crewforge/pkg/studio"
	"github.com/zen-systems/crewforge/pkg/variants"
)

// maxFormBytes bounds a submitted form, including a result posted back for
// export.
const maxFormBytes = 4 << 20

// Runner executes a prepared crew.
type Runner interface {
	Run(ctx context.Context, job *variants.Job) (*studio.Outcome, error)
}

// Options configures the server.
type Options struct {
	Logger    *zap.Logger
	Variant   variants.Options
	AccessLog bool
}

// Server serves the forms and admits one run at a time.
type Server struct {
	runner  Runner
	sem     *semaphore.Weighted
	logger  *zap.Logger
	variant variants.Options
	router  chi.Router
}

// New creates a server around runner.
func New(runner Runner, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner:  runner,
		sem:     semaphore.NewWeighted(1),
		logger:  logger,
		variant: opts.Variant,
	}

	r := chi.NewRouter()
	if opts.AccessLog {
		r.Use(httplog.RequestLogger(httplog.NewLogger("crewforge", httplog.Options{
			JSON:    true,
			Concise: true,
		})))
	}
	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/variants/{name}", s.handleForm)
	r.Post("/variants/{name}", s.handleRun)
	r.Post("/export/{format}", s.handleExport)
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

type indexPage struct {
	Title    string
	Variants []*variants.Variant
}

type formPage struct {
	Title   string
	Variant *variants.Variant
	Values  map[string]string
	Error   string
}

type resultPage struct {
	Title      string
	Variant    *variants.Variant
	RunID      string
	OutputPath string
	Markdown   string
	FileName   string
	Body       template.HTML
	Image      template.URL
	ImageError string
	Formats    []export.Format
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index", indexPage{Title: "Crews", Variants: variants.Catalog()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*variants.Variant, bool) {
	v, err := variants.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, present.Message(err), present.Status(err))
		return nil, false
	}
	return v, true
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	values := make(map[string]string, len(v.Fields))
	for _, f := range v.Fields {
		values[f.Name] = f.Default
	}
	s.render(w, http.StatusOK, "form", formPage{Title: v.Title, Variant: v, Values: values})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	input := make(map[string]string, len(v.Fields))
	for _, f := range v.Fields {
		vals, ok := r.PostForm[f.Name]
		switch {
		case f.Kind == variants.KindMulti:
			// Unchecked boxes are not submitted, so absence means none.
			input[f.Name] = strings.Join(vals, ", ")
		case ok && len(vals) > 0:
			input[f.Name] = vals[0]
		}
	}
	page := formPage{Title: v.Title, Variant: v, Values: input}

	job, err := v.Prepare(input, s.variant)
	if err != nil {
		page.Error = present.Message(err)
		s.render(w, present.Status(err), "form", page)
		return
	}

	if !s.sem.TryAcquire(1) {
		page.Error = "Another crew is already running. Please try again when it has finished."
		s.render(w, http.StatusServiceUnavailable, "form", page)
		return
	}
	defer s.sem.Release(1)

	// A run is not abandoned when the browser goes away.
	ctx := context.WithoutCancel(r.Context())
	start := time.Now()
	out, err := s.runner.Run(ctx, job)
	if err != nil {
		s.logger.Error("run failed", zap.String("variant", v.Name), zap.Error(err))
		page.Error = present.Message(err)
		s.render(w, present.Status(err), "form", page)
		return
	}
	s.logger.Info("run finished", zap.String("variant", v.Name), zap.Duration("duration", time.Since(start)))

	markdown := out.Result.Terminal.Text
	body, err := export.Fragment(markdown)
	if err != nil {
		http.Error(w, "failed to render result", http.StatusInternalServerError)
		return
	}

	fileName := v.Name + ".md"
	if out.Result.OutputPath != "" {
		fileName = filepath.Base(out.Result.OutputPath)
	}
	result := resultPage{
		Title:      v.Title,
		Variant:    v,
		RunID:      out.Result.RunID,
		OutputPath: out.Result.OutputPath,
		Markdown:   markdown,
		FileName:   fileName,
		Body:       body,
		Formats:    export.Formats,
	}
	if len(out.Image) > 0 {
		result.Image = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(out.Image))
	}
	if out.ImageErr != nil {
		result.ImageError = "The image could not be generated: " + present.Message(out.ImageErr)
	}
	s.render(w, http.StatusOK, "result", result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	data, err := export.Export(r.PostForm.Get("markdown"), format)
	if err != nil {
		s.logger.Error("export failed", zap.String("format", string(format)), zap.Error(err))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	name := filepath.Base(r.PostForm.Get("filename"))
	if name == "." || name == string(filepath.Separator) {
		name = "result"
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName(name)))
	_, _ = w.Write(data)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
