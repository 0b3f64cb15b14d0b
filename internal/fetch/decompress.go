package fetch

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// decompress wraps body according to the Content-Encoding header.
func decompress(body io.Reader, contentEncoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return io.NopCloser(body), nil
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return r, nil
	case "deflate":
		return newDeflateReader(body)
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, contentEncoding)
	}
}

// newDeflateReader handles both zlib-wrapped and raw deflate streams.
// HTTP "deflate" is defined as zlib, but many servers send raw deflate.
func newDeflateReader(body io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(body)
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header) {
		r, err := zlib.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create zlib reader: %w", err)
		}
		return r, nil
	}
	return flate.NewReader(br), nil
}

// isZlibHeader checks the CMF/FLG pair from RFC 1950.
func isZlibHeader(b []byte) bool {
	const deflateMethod = 8
	if b[0]&0x0f != deflateMethod {
		return false
	}
	return (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}

// toUTF8 transcodes body when the charset is known for certain and is not
// already UTF-8. Otherwise the bytes are returned as they are.
func toUTF8(body []byte, contentType string) string {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain || name == "utf-8" || enc == encoding.Nop {
		return string(body)
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
