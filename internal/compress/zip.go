package compress

import (
	"archive/zip"
	"io"
	"time"
)

// ZipWriter implements packaging data into a ZIP archive holding a single file.
type ZipWriter struct {
	zipWriter *zip.Writer
	file      io.Writer
}

// NewZipWriter creates a new ZipWriter with the specified file name inside the archive.
func NewZipWriter(w io.Writer, fileName string) (*ZipWriter, error) {
	zw := zip.NewWriter(w)
	f, err := zw.CreateHeader(&zip.FileHeader{
		Name:     fileName,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return &ZipWriter{
		zipWriter: zw,
		file:      f,
	}, nil
}

// Write writes data to the file inside the ZIP archive.
func (z *ZipWriter) Write(p []byte) (int, error) {
	return z.file.Write(p)
}

// Close closes the ZIP archive.
func (z *ZipWriter) Close() error {
	return z.zipWriter.Close()
}
