package speech

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

func gunzipPayload(data []byte, method compressionMethod) ([]byte, error) {
	switch method {
	case compressionNone:
		return data, nil
	case compressionGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip payload: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("read gzip payload: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression method %d", method)
	}
}

func gzipPayload(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
