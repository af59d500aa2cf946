package main

import (
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// lineWriter writes one JSON document per line.
type lineWriter struct {
	mu  sync.Mutex
	enc *jsoniter.Encoder
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{enc: json.NewEncoder(w)}
}

func (lw *lineWriter) write(v interface{}) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.enc.Encode(v)
}

func (lw *lineWriter) status(s string) error {
	return lw.write(map[string]string{"status": s})
}

func (lw *lineWriter) error(err error) error {
	return lw.write(map[string]string{"error": err.Error()})
}
