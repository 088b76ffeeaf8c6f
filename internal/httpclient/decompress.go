package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding is the value we advertise on outgoing requests.
const AcceptEncoding = "gzip, deflate, br"

// DecodeBody wraps resp.Body according to Content-Encoding. The returned
// ReadCloser owns resp.Body; closing it closes both. Identity and unknown
// encodings pass the body through untouched.
func DecodeBody(resp *http.Response) (io.ReadCloser, error) {
	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch enc {
	case "", "identity":
		return resp.Body, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return &decodedBody{r: zr, closers: []io.Closer{zr, resp.Body}}, nil
	case "deflate":
		fr := flate.NewReader(resp.Body)
		return &decodedBody{r: fr, closers: []io.Closer{fr, resp.Body}}, nil
	case "br":
		return &decodedBody{r: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}, nil
	default:
		return resp.Body, nil
	}
}

type decodedBody struct {
	r       io.Reader
	closers []io.Closer
}

func (d *decodedBody) Read(p []byte) (int, error) { return d.r.Read(p) }

func (d *decodedBody) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
