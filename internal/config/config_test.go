package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"typelib/internal/trace"
	"typelib/internal/types"
)

const sample = `
[layout]
byte_order = "big"
count_width = 4

[[container]]
name = "/std/vector"
size = 24
random_access = true

[[container]]
name = "/std/list"
size = 16
count_width = 2

[trace]
level = "registry"
output = "trace.ndjson"

[inputs]
files = ["decls/base.toml", "/abs/extra.tlb"]
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadResolvesInputs(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(writeConfig(t, dir, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Inputs.Files[0] != filepath.Join(dir, "decls/base.toml") || cfg.Inputs.Files[1] != "/abs/extra.tlb" {
		t.Fatalf("unexpected inputs %v", cfg.Inputs.Files)
	}
	if cfg.Trace.Mode != "stream" {
		t.Fatalf("defaults must survive partial tables, got mode %q", cfg.Trace.Mode)
	}

	opts, err := cfg.LayoutOptions()
	if err != nil {
		t.Fatalf("layout options: %v", err)
	}
	if opts.ByteOrder != binary.BigEndian || opts.CountWidth != 4 {
		t.Fatalf("unexpected layout options %+v", opts)
	}
	if _, ok := opts.Encodings["/std/list"]; !ok || len(opts.Encodings) != 1 {
		t.Fatalf("expected a dedicated encoding for /std/list only, got %v", opts.Encodings)
	}

	tc, err := cfg.TracerConfig()
	if err != nil {
		t.Fatalf("tracer config: %v", err)
	}
	if tc.Level != trace.LevelRegistry || tc.OutputPath != "trace.ndjson" {
		t.Fatalf("unexpected tracer config %+v", tc)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown key": "[layout]\nendianness = \"big\"\n",
		"byte order":  "[layout]\nbyte_order = \"middle\"\n",
		"count width": "[layout]\ncount_width = 3\n",
		"trace level": "[trace]\nlevel = \"loud\"\n",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, t.TempDir(), content)); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[layout]\ncount_width = 2\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg, err := Discover("", nested)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if cfg.Layout.CountWidth != 2 || !strings.HasSuffix(cfg.Path, FileName) {
		t.Fatalf("expected the parent config, got %+v", cfg)
	}
}

func TestRegisterContainers(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r := types.NewRegistry()
	if err := cfg.RegisterContainers(r); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := cfg.RegisterContainers(r); err != nil {
		t.Fatalf("registering twice must be a no-op: %v", err)
	}
	m, ok := r.ContainerModel("/std/vector")
	if !ok || m.Size != 24 || !m.RandomAccess {
		t.Fatalf("unexpected model %+v", m)
	}

	other := types.NewRegistry()
	if _, err := other.RegisterContainerModel("/std/vector", types.ContainerModelOptions{Size: 32}); err != nil {
		t.Fatalf("model: %v", err)
	}
	if err := cfg.RegisterContainers(other); err == nil {
		t.Fatalf("expected a conflict with the existing model")
	}
}
