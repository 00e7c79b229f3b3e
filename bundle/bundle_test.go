package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"
)

func buildArchive(t *testing.T, files map[string][]byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, data := range files {
		if err := tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(data)), Mode: 0o644}); err != nil {
			t.Fatalf("writing header for %s: %v", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatalf("writing body for %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return &buf
}

func TestLoadPolicyAndData(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"policy.wasm": {0x00, 0x61, 0x73, 0x6d},
		"data.json":   []byte(`{"roles":["admin","user"]}`),
	})

	b, err := Load(archive)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(b.Policy, []byte{0x00, 0x61, 0x73, 0x6d}) {
		t.Fatalf("unexpected policy bytes: %v", b.Policy)
	}
	m, ok := b.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected data to decode to an object, got %T", b.Data)
	}
	roles, ok := m["roles"].([]interface{})
	if !ok || len(roles) != 2 {
		t.Fatalf("unexpected roles: %v", m["roles"])
	}
}

func TestLoadWithoutData(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"policy.wasm": {0x00, 0x61, 0x73, 0x6d},
	})

	b, err := Load(archive)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Data != nil {
		t.Fatalf("expected nil Data, got %v", b.Data)
	}
}

func TestLoadMissingPolicy(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"data.json": []byte(`{}`),
	})

	if _, err := Load(archive); err == nil {
		t.Fatal("expected an error for a bundle missing policy.wasm")
	}
}
