// Package testing provides fixtures shared by the fresson test suites:
// synthetic images, multipart requests and an observable logger.
package testing

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/leeforge/fresson/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// GradientImage returns an opaque image whose channels vary with x and y.
func GradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: uint8((x + y) * 3),
				A: 255,
			})
		}
	}
	return img
}

// SolidImage returns a w x h image filled with c.
func SolidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func EncodeJPEG(t testing.TB, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	return buf.Bytes()
}

// WritePNG encodes img to path.
func WritePNG(t testing.TB, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, EncodePNG(t, img), 0o644))
}

// FilePart is one file of a multipart body.
type FilePart struct {
	Field    string
	Filename string
	Data     []byte
}

// MultipartBody encodes fields and files as multipart/form-data and returns
// the body with its content type.
func MultipartBody(t testing.TB, fields map[string]string, files ...FilePart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.Field, f.Filename)
		require.NoError(t, err)
		_, err = fw.Write(f.Data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

// MultipartRequest builds a server side request for handler tests.
func MultipartRequest(t testing.TB, method, target string, fields map[string]string, files ...FilePart) *http.Request {
	t.Helper()
	body, contentType := MultipartBody(t, fields, files...)
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

// HTTPTestClient talks to a handler through a real listener.
type HTTPTestClient struct {
	server *httptest.Server
	client *http.Client
}

func NewHTTPTestClient(handler http.Handler) *HTTPTestClient {
	return &HTTPTestClient{
		server: httptest.NewServer(handler),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Get returns the response with its body already read.
func (c *HTTPTestClient) Get(path string, headers map[string]string) (*http.Response, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.server.URL+path, nil)
	if err != nil {
		return nil, nil, err
	}
	return c.do(req, headers)
}

// PostMultipart sends fields and files as multipart/form-data.
func (c *HTTPTestClient) PostMultipart(t testing.TB, path string, fields map[string]string, files ...FilePart) (*http.Response, []byte, error) {
	t.Helper()
	body, contentType := MultipartBody(t, fields, files...)
	req, err := http.NewRequest(http.MethodPost, c.server.URL+path, body)
	if err != nil {
		return nil, nil, err
	}
	return c.do(req, map[string]string{"Content-Type": contentType})
}

func (c *HTTPTestClient) do(req *http.Request, headers map[string]string) (*http.Response, []byte, error) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp, body, err
}

func (c *HTTPTestClient) Close() {
	if c.server != nil {
		c.server.Close()
	}
}

// ObservedLogger returns a logger that records entries at level and above.
func ObservedLogger(level zapcore.Level) (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return logging.FromZap(zap.New(core)), logs
}
