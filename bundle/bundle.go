// Package bundle reads a gzip-compressed tar archive containing a
// "/policy.wasm" file plus an optional "/data.json" document. Bundle
// signing, key management, and the full manifest schema are out of scope
// here; this package only extracts the two files the runtime needs.
package bundle

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"path"
)

// Bundle is the minimal payload the Runtime needs from a loaded archive.
type Bundle struct {
	// Policy is the raw compiled WebAssembly module bytes.
	Policy []byte
	// Data is the JSON-decoded contents of data.json, or nil if the
	// archive did not include one.
	Data interface{}
}

// Load reads a gzip-compressed tar archive from r and extracts policy.wasm
// (required) and data.json (optional).
func Load(r io.Reader) (*Bundle, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("bundle: opening gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	b := &Bundle{}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bundle: reading tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Clean("/" + hdr.Name)
		switch name {
		case "/policy.wasm":
			raw, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("bundle: reading policy.wasm: %w", err)
			}
			b.Policy = raw
		case "/data.json":
			raw, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("bundle: reading data.json: %w", err)
			}
			var v interface{}
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("bundle: decoding data.json: %w", err)
			}
			b.Data = v
		}
	}

	if b.Policy == nil {
		return nil, fmt.Errorf("bundle: archive is missing /policy.wasm")
	}

	return b, nil
}
