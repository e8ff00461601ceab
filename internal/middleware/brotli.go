package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/labstack/echo/v4"
)

// Accept-Encoding: br の時だけレスポンスをbrotliで圧縮する
func Brotli() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == http.MethodHead || !acceptsBrotli(req.Header.Get("Accept-Encoding")) {
				return next(c)
			}

			res := c.Response()
			res.Header().Add("Vary", "Accept-Encoding")

			bw := &brotliWriter{ResponseWriter: res.Writer}
			orig := res.Writer
			res.Writer = bw
			defer func() {
				bw.close()
				res.Writer = orig
			}()

			return next(c)
		}
	}
}

func acceptsBrotli(header string) bool {
	for _, part := range strings.Split(header, ",") {
		enc := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if enc == "br" {
			return true
		}
	}
	return false
}

type brotliWriter struct {
	http.ResponseWriter
	w           *brotli.Writer
	wroteHeader bool
}

func (b *brotliWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true

	//本文がない/既に符号化済みなら素通し
	if code >= http.StatusOK && code != http.StatusNoContent && code != http.StatusNotModified &&
		b.Header().Get("Content-Encoding") == "" {
		b.Header().Set("Content-Encoding", "br")
		b.Header().Del("Content-Length")
		b.w = brotli.NewWriter(b.ResponseWriter)
	}
	b.ResponseWriter.WriteHeader(code)
}

func (b *brotliWriter) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	if b.w == nil {
		return b.ResponseWriter.Write(p)
	}
	return b.w.Write(p)
}

func (b *brotliWriter) Flush() {
	if b.w != nil {
		_ = b.w.Flush()
	}
	if f, ok := b.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (b *brotliWriter) close() {
	if b.w != nil {
		_ = b.w.Close()
	}
}
