// Package compress negotiates and applies response encoding. Brotli is
// preferred when the client accepts it, gzip otherwise, nothing when the
// client accepts neither or the payload is below the size threshold.
// Encoder failures degrade to the uncompressed payload; compression never
// fails a request.
package compress

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/uniseek/uniseek/pkg/log"
)

// Encodings emitted in Content-Encoding.
const (
	EncodingBrotli = "br"
	EncodingGzip   = "gzip"
)

// Result is the outcome of one negotiation. Encoding is empty when the
// payload went out unmodified.
type Result struct {
	Bytes    []byte
	Encoding string
	// Ratio is compressed size over original size, 1 when uncompressed.
	Ratio float64
}

// Options configure a Negotiator. Zero values pick the defaults: a 1KB
// threshold and latency-friendly levels suited to per-request generated
// payloads (static content would warrant higher levels).
type Options struct {
	Threshold   int
	BrotliLevel int
	GzipLevel   int
}

// Negotiator chooses and applies a response encoding.
type Negotiator struct {
	threshold   int
	brotliLevel int
	gzipLevel   int
	logger      *log.Logger
}

// NewNegotiator creates a negotiator with the given options.
func NewNegotiator(opts Options) *Negotiator {
	if opts.Threshold <= 0 {
		opts.Threshold = 1024
	}
	if opts.BrotliLevel <= 0 {
		opts.BrotliLevel = 4
	}
	if opts.GzipLevel <= 0 {
		opts.GzipLevel = gzip.DefaultCompression
	}
	return &Negotiator{
		threshold:   opts.Threshold,
		brotliLevel: opts.BrotliLevel,
		gzipLevel:   opts.GzipLevel,
		logger:      log.ForComponent("compress"),
	}
}

// Negotiate inspects the client's Accept-Encoding header and returns the
// payload encoded with the strongest scheme both sides support. Payloads
// below the threshold are returned as-is regardless of client capability.
func (n *Negotiator) Negotiate(acceptEncoding string, payload []byte) Result {
	uncompressed := Result{Bytes: payload, Ratio: 1}
	if len(payload) < n.threshold {
		return uncompressed
	}

	var (
		encoded []byte
		err     error
		scheme  string
	)
	switch {
	case accepts(acceptEncoding, EncodingBrotli):
		scheme = EncodingBrotli
		encoded, err = n.brotliEncode(payload)
	case accepts(acceptEncoding, EncodingGzip):
		scheme = EncodingGzip
		encoded, err = n.gzipEncode(payload)
	default:
		return uncompressed
	}

	if err != nil {
		n.logger.Warnf("%s encoding failed, sending uncompressed: %v", scheme, err)
		return uncompressed
	}

	return Result{
		Bytes:    encoded,
		Encoding: scheme,
		Ratio:    float64(len(encoded)) / float64(len(payload)),
	}
}

func (n *Negotiator) brotliEncode(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, n.brotliLevel)
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Negotiator) gzipEncode(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, n.gzipLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// accepts reports whether the Accept-Encoding header lists the scheme, or
// the "*" wildcard, with a non-zero quality.
func accepts(header, scheme string) bool {
	for _, part := range strings.Split(header, ",") {
		token, quality, _ := strings.Cut(strings.TrimSpace(part), ";")
		token = strings.TrimSpace(token)
		if token != "*" && !strings.EqualFold(token, scheme) {
			continue
		}
		quality = strings.TrimSpace(quality)
		if qv, ok := strings.CutPrefix(quality, "q="); ok {
			if f, err := strconv.ParseFloat(qv, 64); err == nil && f == 0 {
				return false
			}
		}
		return true
	}
	return false
}
