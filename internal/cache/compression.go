package cache

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Compression wraps artifact files in a compressed stream.
type Compression interface {
	Ext() string
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.Reader, error)
}

// NewCompression returns the compression registered under name.
func NewCompression(name string) (Compression, error) {
	switch name {
	case "gzip", "":
		return gzipCompression{}, nil
	case "xz":
		return xzCompression{}, nil
	}
	return nil, fmt.Errorf("unknown compression %q", name)
}

type gzipCompression struct{}

func (gzipCompression) Ext() string { return ".gz" }

func (gzipCompression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (gzipCompression) NewReader(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

type xzCompression struct{}

func (xzCompression) Ext() string { return ".xz" }

func (xzCompression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

func (xzCompression) NewReader(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}
