package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliOptions controls response compression.
type BrotliOptions struct {
	Quality int
	// MinLength is the smallest body worth compressing. Shorter bodies are
	// written as-is.
	MinLength int
	// SkipPaths are route prefixes never compressed, such as streaming
	// endpoints.
	SkipPaths []string
}

// DefaultBrotliOptions compresses JSON bodies of 1 KiB and more.
var DefaultBrotliOptions = BrotliOptions{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// brotliWriter holds back the body until it knows whether compression pays
// off, then either streams through brotli or replays the buffer verbatim.
type brotliWriter struct {
	gin.ResponseWriter
	opts    BrotliOptions
	pending []byte
	enc     *brotli.Writer
	plain   bool
}

func (w *brotliWriter) Write(p []byte) (int, error) {
	switch {
	case w.enc != nil:
		return w.enc.Write(p)
	case w.plain:
		return w.ResponseWriter.Write(p)
	}

	w.pending = append(w.pending, p...)
	if len(w.pending) < w.opts.MinLength {
		return len(p), nil
	}

	h := w.ResponseWriter.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	w.enc = brotli.NewWriterLevel(w.ResponseWriter, w.opts.Quality)
	if _, err := w.enc.Write(w.pending); err != nil {
		return 0, err
	}
	w.pending = nil
	return len(p), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush gives up on compression for bodies still being buffered so that
// streaming handlers are not held back.
func (w *brotliWriter) Flush() {
	if w.enc != nil {
		_ = w.enc.Flush()
	} else {
		w.replay()
	}
	w.ResponseWriter.Flush()
}

func (w *brotliWriter) replay() {
	w.plain = true
	if len(w.pending) > 0 {
		_, _ = w.ResponseWriter.Write(w.pending)
		w.pending = nil
	}
}

func (w *brotliWriter) finish() error {
	if w.enc != nil {
		return w.enc.Close()
	}
	w.replay()
	return nil
}

// Brotli compresses responses for clients that accept br.
func Brotli(opts BrotliOptions) gin.HandlerFunc {
	if opts.Quality < brotli.BestSpeed || opts.Quality > brotli.BestCompression {
		opts.Quality = brotli.DefaultCompression
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultBrotliOptions.MinLength
	}

	return func(c *gin.Context) {
		if !wantsBrotli(c, opts.SkipPaths) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{ResponseWriter: c.Writer, opts: opts}
		c.Writer = bw
		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Next()
	}
}

func wantsBrotli(c *gin.Context, skip []string) bool {
	// Upgrades and event streams must reach the client unbuffered.
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") ||
		strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return false
	}
	for _, prefix := range skip {
		if strings.HasPrefix(c.Request.URL.Path, prefix) {
			return false
		}
	}
	return acceptsEncoding(c.Request, "br")
}

func acceptsEncoding(r *http.Request, enc string) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(name, enc) {
			return true
		}
	}
	return false
}
