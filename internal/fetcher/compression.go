package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// CompressionMiddleware is an http.RoundTripper that advertises brotli, gzip and deflate
// support and transparently decodes the response body.
type CompressionMiddleware struct {
	Transport http.RoundTripper
}

// NewCompressionMiddleware wraps transport, defaulting to http.DefaultTransport.
func NewCompressionMiddleware(transport http.RoundTripper) *CompressionMiddleware {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &CompressionMiddleware{Transport: transport}
}

// RoundTrip implements http.RoundTripper.
func (cm *CompressionMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "br, gzip, deflate, identity")
	}

	resp, err := cm.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := DecompressResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to initialize response decompression: %w", err)
	}
	return resp, nil
}

// CloseIdleConnections forwards to the wrapped transport when it supports it.
func (cm *CompressionMiddleware) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if t, ok := cm.Transport.(closeIdler); ok {
		t.CloseIdleConnections()
	}
}

// closeWrapper closes every decoder, innermost last, then the original body.
type closeWrapper struct {
	io.Reader
	decoders     []io.Closer
	originalBody io.ReadCloser
}

func (w *closeWrapper) Close() error {
	var errs []error
	for i := len(w.decoders) - 1; i >= 0; i-- {
		errs = append(errs, w.decoders[i].Close())
	}
	return errors.Join(append(errs, w.originalBody.Close())...)
}

// DecompressResponse wraps resp.Body with decoders for its Content-Encoding.
// Codings are listed in the order they were applied, across and within header
// values, so they are undone last to first. Unknown encodings are an error.
func DecompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}

	var codings []string
	for _, value := range resp.Header.Values("Content-Encoding") {
		for _, token := range strings.Split(value, ",") {
			codings = append(codings, strings.ToLower(strings.TrimSpace(token)))
		}
	}
	if len(codings) == 0 {
		return nil
	}

	original := resp.Body
	var reader io.Reader = original
	var decoders []io.Closer

	for i := len(codings) - 1; i >= 0; i-- {
		switch codings[i] {
		case "", "identity":
		case "br":
			reader = brotli.NewReader(reader)
		case "gzip", "x-gzip":
			zr, err := gzip.NewReader(reader)
			if err != nil {
				return fmt.Errorf("invalid gzip stream: %w", err)
			}
			reader = zr
			decoders = append(decoders, zr)
		case "deflate":
			dr, err := deflateReader(reader)
			if err != nil {
				return fmt.Errorf("invalid deflate stream: %w", err)
			}
			reader = dr
			decoders = append(decoders, dr)
		default:
			return fmt.Errorf("unsupported content encoding %q", codings[i])
		}
	}

	resp.Body = &closeWrapper{Reader: reader, decoders: decoders, originalBody: original}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// deflateReader accepts zlib-wrapped streams, as the RFC requires, and the raw
// deflate streams some servers send instead.
func deflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err != nil {
		return nil, err
	}
	if header[0]&0x0f == 8 && (uint16(header[0])<<8|uint16(header[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}
