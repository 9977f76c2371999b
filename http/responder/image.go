package responder

import (
	"fmt"
	"net/http"
	"strconv"
)

// Image sends binary image data as a download named filename.
func Image(w http.ResponseWriter, r *http.Request, data []byte, contentType, filename string, headers map[string]string) {
	h := w.Header()
	for k, v := range headers {
		h.Set(k, v)
	}
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}
