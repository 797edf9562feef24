package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"typelib/internal/config"
	"typelib/internal/layout"
	"typelib/internal/observ"
	"typelib/internal/snapshot"
	"typelib/internal/trace"
	"typelib/internal/types"
	"typelib/internal/ui"
)

const geoDecls = `
namespace = "/geo"

[[container]]
name = "/std/vector"
size = 24
random_access = true

[[numeric]]
name = "/float64"
size = 8
category = "float"

[[numeric]]
name = "/int32"
size = 4
category = "sint"

[[compound]]
name = "Point"
metadata = { doc = ["a point"] }
  [[compound.field]]
  name = "x"
  type = "/float64"
  [[compound.field]]
  name = "y"
  type = "/float64"
  skip = 8

[[compound]]
name = "Line"
  [[compound.field]]
  name = "id"
  type = "/int32"
  [[compound.field]]
  name = "points"
  type = "/std/vector</geo/Point>"
`

const extraDecls = `
[[numeric]]
name = "/int32"
size = 4
category = "sint"

[[character]]
name = "/char"
size = 1
`

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testSession(t *testing.T, cache bool) *session {
	t.Helper()
	s := &session{
		ctx:    context.Background(),
		cfg:    config.Default(),
		logger: zap.NewNop(),
		tracer: trace.Nop,
		timer:  observ.NewTimer(),
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
	if cache {
		c, err := snapshot.NewDiskCache(t.TempDir())
		if err != nil {
			t.Fatalf("cache: %v", err)
		}
		s.cache = c
	}
	return s
}

func loadGeo(t *testing.T) (*session, *types.Registry) {
	t.Helper()
	s := testSession(t, false)
	r, err := s.loadInputs([]string{writeFile(t, t.TempDir(), "geo.toml", geoDecls)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return s, r
}

func TestClassifyInput(t *testing.T) {
	cases := map[string]inputKind{"a.toml": inputDecl, "dir/b.TLB": inputSnapshot}
	for path, want := range cases {
		if got, err := classifyInput(path); err != nil || got != want {
			t.Fatalf("%s: expected %d, got %d (%v)", path, want, got, err)
		}
	}
	if _, err := classifyInput("types.xml"); err == nil {
		t.Fatalf("expected an error for unknown extensions")
	}
}

func TestLoadInputsMergesAndCaches(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "geo.toml", geoDecls),
		writeFile(t, dir, "extra.toml", extraDecls),
	}
	s := testSession(t, true)
	r, err := s.loadInputs(paths)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !r.Has("/geo/Line") || !r.Has("/char") {
		t.Fatalf("merged registry misses types")
	}

	again := testSession(t, false)
	again.cache = s.cache
	r2, err := again.loadInputs(paths)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !r.SameTypes(r2) {
		t.Fatalf("cached registries differ")
	}
	var notes []string
	for _, p := range again.timer.Phases() {
		notes = append(notes, p.Note)
	}
	if !slices.Contains(notes, "cached") {
		t.Fatalf("second load must hit the cache, phases: %v", notes)
	}
}

func TestLoadInputsReportsConflicts(t *testing.T) {
	dir := t.TempDir()
	conflict := strings.Replace(extraDecls, "size = 4", "size = 8", 1)
	s := testSession(t, false)
	_, err := s.loadInputs([]string{
		writeFile(t, dir, "geo.toml", geoDecls),
		writeFile(t, dir, "conflict.toml", conflict),
	})
	if err == nil || !strings.Contains(err.Error(), "conflict.toml") {
		t.Fatalf("expected a conflict naming the input, got %v", err)
	}
}

func TestCheckNames(t *testing.T) {
	_, r := loadGeo(t)
	checks := checkNames(r, []string{"/geo/Point[2]", "geo/Point", "/geo/Missing", "/geo/Line"})
	if c := checks[0]; c.err != nil || !c.solved || c.size != 48 || !c.fixed {
		t.Fatalf("unexpected array check %+v", c)
	}
	if checks[1].err == nil || checks[2].err == nil {
		t.Fatalf("relative and unknown names must fail")
	}
	if c := checks[3]; c.err != nil || c.fixed {
		t.Fatalf("a line holds a container and is not fixed: %+v", c)
	}
	if c := checkNames(nil, []string{"/any/Name"})[0]; c.err != nil || c.solved {
		t.Fatalf("grammar-only check: %+v", c)
	}
}

func TestWritePrettyCompound(t *testing.T) {
	noColor(t)
	_, r := loadGeo(t)
	point, err := r.Get("/geo/Point")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	d := point.Describe(types.DescribeOptions{LayoutInfo: true})
	var buf bytes.Buffer
	if err := writePretty(&buf, &d, 0); err != nil {
		t.Fatalf("pretty: %v", err)
	}
	want := strings.Join([]string{
		"/geo/Point compound (24 bytes)",
		"  doc:  a point",
		"  x  /float64  @0",
		"  y  /float64  @8 skip 8",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWritePrettyRecursiveContainer(t *testing.T) {
	noColor(t)
	_, r := loadGeo(t)
	line, err := r.Get("/geo/Line")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	d := line.Describe(types.DescribeOptions{Recursive: true})
	var buf bytes.Buffer
	if err := writePretty(&buf, &d, 0); err != nil {
		t.Fatalf("pretty: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"  /std/vector</geo/Point> container", "    model          /std/vector", "    /geo/Point compound"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}
}

func lineBuffer(id int32, points ...[2]float64) []byte {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(id))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(points)))
	for _, p := range points {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p[0]))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p[1]))
		buf = append(buf, make([]byte, 8)...)
	}
	return buf
}

func TestSizeAndDump(t *testing.T) {
	noColor(t)
	s, r := loadGeo(t)
	line, err := r.Get("/geo/Line")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	engine, err := s.engine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	buf := lineBuffer(-7, [2]float64{1.5, 2}, [2]float64{3, 4.25}, [2]float64{0, 0})
	size, err := engine.BufferSize(line, buf)
	if err != nil || size != 4+8+3*24 {
		t.Fatalf("expected %d, got %d (%v)", 4+8+3*24, size, err)
	}

	v, err := engine.NewValue(line, buf)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var out bytes.Buffer
	if err := writeValue(&out, v, "", 0, 2); err != nil {
		t.Fatalf("dump: %v", err)
	}
	got := out.String()
	for _, want := range []string{"  id: -7", "  points: /std/vector</geo/Point> [3]", "    [1] /geo/Point", "      y: 4.25", "    ... 1 more"} {
		if !strings.Contains(got, want) {
			t.Fatalf("dump lacks %q:\n%s", want, got)
		}
	}
}

func TestByteOrderOverrideReachesEncodings(t *testing.T) {
	s := testSession(t, false)
	s.cfg.Containers = []config.ContainerConfig{{Name: "/std/vector", Size: 24, CountWidth: 4}}
	s.byteOrder = "big"
	engine, err := s.engine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	enc, ok := engine.Encoding("/std/vector").(layout.CountPrefixed)
	if !ok || enc.Order != binary.BigEndian || enc.Width != 4 {
		t.Fatalf("unexpected encoding %#v", engine.Encoding("/std/vector"))
	}
}

func TestWriteRegistryFormats(t *testing.T) {
	s, r := loadGeo(t)
	dir := t.TempDir()

	tlb := filepath.Join(dir, "out.tlb")
	if err := writeRegistry(tlb, r); err != nil {
		t.Fatalf("write tlb: %v", err)
	}
	back, _, err := s.loadInput(tlb)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !back.SameTypes(r) || !r.SameTypes(back) {
		t.Fatalf("snapshot round trip changed the registry")
	}

	js := filepath.Join(dir, "out.json")
	if err := writeRegistry(js, r); err != nil {
		t.Fatalf("write json: %v", err)
	}
	data, err := os.ReadFile(js)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded snapshot.Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json: %v", err)
	}
	if decoded.Schema != snapshot.SchemaVersion || len(decoded.Types) != r.Len() {
		t.Fatalf("unexpected json snapshot: schema %d, %d types", decoded.Schema, len(decoded.Types))
	}

	if err := writeRegistry(filepath.Join(dir, "out.xml"), r); err == nil {
		t.Fatalf("expected an error for unknown output formats")
	}
}

func TestRegistryDiff(t *testing.T) {
	_, a := loadGeo(t)
	b := types.NewRegistry()
	if _, err := b.CreateNumeric("/int32", 8, types.NumericSInt); err != nil {
		t.Fatalf("int32: %v", err)
	}
	if _, err := b.CreateCharacter("/char", 1); err != nil {
		t.Fatalf("char: %v", err)
	}
	diff := registryDiff(a, b)
	for _, want := range []string{"changed: /int32", "only in first: /geo/Point", "only in second: /char"} {
		if !slices.Contains(diff, want) {
			t.Fatalf("diff lacks %q: %v", want, diff)
		}
	}
}

func TestDescribeCommandJSON(t *testing.T) {
	dir := t.TempDir()
	decls := writeFile(t, dir, "geo.toml", geoDecls)
	cfg := writeFile(t, dir, config.FileName, "[layout]\nbyte_order = \"little\"\n")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--config", cfg, "--color", "off", "-i", decls,
		"describe", "/geo/Point[2]", "--layout", "--format", "json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var d types.Description
	if err := json.Unmarshal(out.Bytes(), &d); err != nil {
		t.Fatalf("json %q: %v", out.String(), err)
	}
	if d.Class != "array" || d.Size == nil || *d.Size != 48 || d.Element.Name != "/geo/Point" {
		t.Fatalf("unexpected description %+v", d)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []ui.Event
}

func (r *recordingSink) OnEvent(ev ui.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestLoadInputsReportsProgress(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "geo.toml", geoDecls),
		writeFile(t, dir, "extra.toml", extraDecls),
	}
	sink := &recordingSink{}
	s := testSession(t, false)
	s.progress = sink
	if _, err := s.loadInputs(paths); err != nil {
		t.Fatalf("load: %v", err)
	}
	last := make(map[string]ui.Event)
	for _, ev := range sink.events {
		last[ev.Input] = ev
	}
	for _, p := range paths {
		if ev := last[p]; ev.Status != ui.StatusDone || ev.Note == "" {
			t.Fatalf("%s: expected a final done event, got %+v", p, ev)
		}
	}
	if sink.events[0].Status != ui.StatusQueued {
		t.Fatalf("inputs start queued, got %+v", sink.events[0])
	}
}

func TestShouldUseTUI(t *testing.T) {
	if !shouldUseTUI(uiModeOn, true, 1) || shouldUseTUI(uiModeOff, false, 5) {
		t.Fatalf("explicit modes win")
	}
	if shouldUseTUI(uiModeAuto, false, 1) {
		t.Fatalf("a single input never shows progress")
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}
