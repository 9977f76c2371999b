package server

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/leeforge/fresson/errors"
	"github.com/leeforge/fresson/http/binding"
	"github.com/leeforge/fresson/http/responder"
	"github.com/leeforge/fresson/logging"
	"github.com/leeforge/fresson/media/processor"
	"github.com/leeforge/fresson/media/storage"
	"go.uber.org/zap"
)

const (
	// SeedHeader carries the seed a response was produced with.
	SeedHeader = "X-Fresson-Seed"

	multipartMemory = 32 << 20
	outputBaseName  = "processed_image"
)

type effectForm struct {
	PaintingLike bool    `form:"painting_like" default:"true"`
	Seed         *uint64 `form:"seed"`
	Format       string  `form:"format" default:"jpeg" validate:"oneof=jpeg jpg png"`
	TextureName  string  `form:"texture_name" validate:"omitempty,max=128"`
}

type textureForm struct {
	Name string `form:"name" validate:"required,max=128"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Pipeline any    `json:"pipeline"`
	Textures any    `json:"textureCache,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Pipeline: s.deps.Limiter.Stats()}
	if s.deps.TextureCache != nil {
		resp.Textures = s.deps.TextureCache.Stats()
	}
	responder.OK(w, r, resp)
}

// applyEffect runs the filter on the uploaded image and answers with the
// encoded result.
func (s *Server) applyEffect(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r) {
		return
	}

	var form effectForm
	if err := binding.Form(r, &form, multipartMemory); err != nil {
		s.bindFailed(w, r, err)
		return
	}
	format, err := processor.NormalizeFormat(form.Format)
	if err != nil {
		responder.Error(w, r, err)
		return
	}

	source, err := binding.File(r, "image", true, s.config.MaxUploadBytes)
	if err != nil {
		s.bindFailed(w, r, err)
		return
	}
	texture, err := s.resolveTexture(r, form.TextureName)
	if err != nil {
		s.bindFailed(w, r, err)
		return
	}

	opts := processor.Options{
		PaintingLike: form.PaintingLike,
		Seed:         form.Seed,
		Texture:      texture,
		Format:       format,
	}

	var (
		out    []byte
		result *processor.Result
	)
	started := time.Now()
	err = s.deps.Limiter.Execute(r.Context(), func(ctx context.Context) error {
		var runErr error
		out, result, runErr = s.deps.Pipeline.Process(ctx, source.Data, opts)
		return runErr
	})
	err = contextError(err)
	s.recordRun(processor.ModeFor(form.PaintingLike), err, time.Since(started))
	if err != nil {
		responder.Error(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("effect applied",
		zap.String("source", source.Filename),
		zap.Uint64("seed", result.Params.Seed),
		zap.String("mode", string(result.Params.Mode)),
		zap.String("format", format),
		zap.Int("bytes", len(out)),
	)

	responder.Image(w, r, out, processor.ContentType(format), outputBaseName+processor.Extension(format), map[string]string{
		SeedHeader: strconv.FormatUint(result.Params.Seed, 10),
	})
}

// resolveTexture returns the uploaded texture, the named library texture,
// or nil when neither was given.
func (s *Server) resolveTexture(r *http.Request, name string) (image.Image, error) {
	upload, err := binding.File(r, "texture", false, s.config.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	if upload != nil && name != "" {
		return nil, errors.NewValidation("texture and texture_name are mutually exclusive")
	}
	if upload != nil {
		return s.deps.Pipeline.DecodeTexture(upload.Reader())
	}
	if name == "" {
		return nil, nil
	}
	return s.loadTexture(r.Context(), name)
}

func (s *Server) loadTexture(ctx context.Context, name string) (image.Image, error) {
	if s.deps.Textures == nil {
		return nil, errors.NewNotFound("texture", name)
	}
	clean, err := storage.CleanName(name)
	if err != nil {
		return nil, errors.NewInvalid("texture_name", name, err.Error())
	}

	load := func(ctx context.Context) (*image.NRGBA, error) {
		rc, err := s.deps.Textures.Open(ctx, clean)
		if stderrors.Is(err, storage.ErrNotExist) {
			return nil, errors.NewNotFound("texture", clean)
		}
		if err != nil {
			return nil, errors.NewStorage(err, "failed to open texture")
		}
		defer rc.Close()
		return s.deps.Pipeline.DecodeTexture(rc)
	}

	if s.deps.TextureCache == nil {
		return load(ctx)
	}
	return s.deps.TextureCache.GetOrLoad(ctx, clean, load)
}

func (s *Server) listTextures(w http.ResponseWriter, r *http.Request) {
	if s.deps.Textures == nil {
		responder.OK(w, r, []storage.FileInfo{})
		return
	}
	files, err := s.deps.Textures.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		responder.Error(w, r, errors.NewStorage(err, "failed to list textures"))
		return
	}
	if files == nil {
		files = []storage.FileInfo{}
	}
	responder.OK(w, r, files)
}

type uploadedTexture struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// uploadTexture stores a texture in the library after checking it decodes.
func (s *Server) uploadTexture(w http.ResponseWriter, r *http.Request) {
	if s.deps.Textures == nil {
		responder.Error(w, r, errors.NewStorage(nil, "texture library is not configured"))
		return
	}
	if !s.parseMultipart(w, r) {
		return
	}

	var form textureForm
	if err := binding.Form(r, &form, multipartMemory); err != nil {
		s.bindFailed(w, r, err)
		return
	}
	name, err := storage.CleanName(form.Name)
	if err != nil {
		responder.Error(w, r, errors.NewInvalid("name", form.Name, err.Error()))
		return
	}
	file, err := binding.File(r, "file", true, s.config.MaxUploadBytes)
	if err != nil {
		s.bindFailed(w, r, err)
		return
	}
	tex, err := s.deps.Pipeline.DecodeTexture(file.Reader())
	if err != nil {
		responder.Error(w, r, err)
		return
	}

	url, err := s.deps.Textures.Upload(r.Context(), bytes.NewReader(file.Data), name)
	if err != nil {
		responder.Error(w, r, errors.NewStorage(err, "failed to store texture"))
		return
	}
	if s.deps.TextureCache != nil {
		s.deps.TextureCache.Delete(name)
	}

	logging.FromContext(r.Context()).Info("texture stored",
		zap.String("name", name),
		zap.String("provider", s.deps.Textures.Name()),
		zap.Int("bytes", len(file.Data)),
	)
	responder.Created(w, r, uploadedTexture{
		Name:   name,
		URL:    url,
		Width:  tex.Rect.Dx(),
		Height: tex.Rect.Dy(),
	})
}

// parseMultipart caps the body and parses it. It writes the error response
// and returns false on failure.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case stderrors.As(err, &maxErr):
		responder.Error(w, r, errors.NewTooLarge("request body", maxErr.Limit))
	case stderrors.Is(err, http.ErrNotMultipart):
		responder.BadRequest(w, r, "expected multipart/form-data")
	default:
		responder.BindError(w, r, &binding.BindError{
			Type:    "bind_error",
			Message: "failed to parse form: " + err.Error(),
		})
	}
	return false
}

// bindFailed writes the response for a binding or texture resolution error.
func (s *Server) bindFailed(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tooLarge   *binding.ErrFileTooLarge
		validation binding.ValidationErrors
		bindErr    *binding.BindError
	)
	switch {
	case stderrors.As(err, &tooLarge):
		responder.Error(w, r, errors.NewTooLarge(tooLarge.Field, tooLarge.Limit))
	case stderrors.As(err, &validation):
		responder.ValidationError(w, r, validation)
	case stderrors.As(err, &bindErr):
		responder.BindError(w, r, bindErr)
	default:
		responder.Error(w, r, err)
	}
}

func (s *Server) recordRun(mode processor.Mode, err error, took time.Duration) {
	if s.deps.Metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(errors.FromError(err).Type)
	}
	s.deps.Metrics.RecordRun(string(mode), outcome, took.Seconds())
}

// contextError converts limiter and cancellation errors to timeouts.
func contextError(err error) error {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewTimeout("pipeline is busy, try again later")
	case stderrors.Is(err, context.Canceled):
		return errors.NewTimeout("request canceled")
	default:
		return err
	}
}
