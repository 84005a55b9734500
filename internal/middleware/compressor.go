package middleware

import (
	"fmt"
	"io"
	"net/http"

	"github.com/drstein77/cartview/internal/compress"
)

// ArchiveTypeMiddleware packages the response body into the archive named by
// the archiveType query parameter. fileName picks the name of the single file
// stored inside the archive.
func ArchiveTypeMiddleware(fileName func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get the archiveType query parameter
			archiveType := r.URL.Query().Get("archiveType")
			if archiveType != "tar" && archiveType != "zip" {
				archiveType = "zip" // Default value
			}

			// Dynamically apply archive middleware
			archiveMiddleware := CreateArchiveMiddleware(archiveType, fileName(r))
			archiveMiddleware(next).ServeHTTP(w, r)
		})
	}
}

// CreateArchiveMiddleware wraps the response writer with a zip or tar writer.
// Responses with an error status pass through unarchived.
func CreateArchiveMiddleware(archiveType, fileName string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			aw := &archiveWriter{
				ResponseWriter: w,
				attachment:     fmt.Sprintf("attachment; filename=%q", fileName+"."+archiveType),
			}

			switch archiveType {
			case "tar":
				aw.contentType = "application/x-tar"
				aw.open = func() (io.WriteCloser, error) {
					return compress.NewTarWriter(w, fileName), nil
				}
			case "zip":
				aw.contentType = "application/zip"
				aw.open = func() (io.WriteCloser, error) {
					return compress.NewZipWriter(w, fileName)
				}
			default:
				h.ServeHTTP(w, r)
				return
			}

			// Transfer control to the handler
			h.ServeHTTP(aw, r)

			// headers are already sent, a close error cannot reach the client
			aw.close()
		})
	}
}

type archiveWriter struct {
	http.ResponseWriter
	open        func() (io.WriteCloser, error)
	archive     io.WriteCloser
	contentType string
	attachment  string
	status      int
	err         error
}

func (a *archiveWriter) WriteHeader(status int) {
	if a.status != 0 {
		return
	}
	a.status = status
	if status >= http.StatusBadRequest {
		a.ResponseWriter.WriteHeader(status)
		return
	}

	h := a.ResponseWriter.Header()
	h.Set("Content-Type", a.contentType)
	h.Set("Content-Disposition", a.attachment)
	h.Del("Content-Length")
	a.ResponseWriter.WriteHeader(status)

	a.archive, a.err = a.open()
}

func (a *archiveWriter) Write(p []byte) (int, error) {
	if a.status == 0 {
		a.WriteHeader(http.StatusOK)
	}
	if a.status >= http.StatusBadRequest {
		return a.ResponseWriter.Write(p)
	}
	if a.err != nil {
		return 0, a.err
	}
	return a.archive.Write(p)
}

func (a *archiveWriter) close() error {
	if a.status == 0 {
		a.WriteHeader(http.StatusOK)
	}
	if a.archive == nil {
		return a.err
	}
	return a.archive.Close()
}
