package service

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"fmt"
	"io"
)

// compress deflates s and base64-encodes the result so it stays a string.
func compress(s string) (string, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("create deflate writer: %w", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return "", fmt.Errorf("deflate value: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("deflate value: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decompress reverses compress. Values that are not base64 deflate streams
// were written uncompressed and come back as they are.
func decompress(s string) string {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	out, err := io.ReadAll(flate.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return s
	}
	return string(out)
}
