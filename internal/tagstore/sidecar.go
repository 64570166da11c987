package tagstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/banshee-data/navtag/internal/fsutil"
	"github.com/banshee-data/navtag/internal/security"
	"github.com/banshee-data/navtag/internal/tags"
)

// SidecarSuffix is appended to an image path to name its tag file.
const SidecarSuffix = ".tags.json"

// SidecarPath returns the tag file that belongs to image.
func SidecarPath(image string) string { return image + SidecarSuffix }

// Sidecar keeps each image's tags in a JSON file next to it. Saving copies
// the image and writes the destination sidecar with the record's fields in
// schema order, followed by any extra tags from the source sidecar.
type Sidecar struct {
	fs        fsutil.FileSystem
	outputDir string
	contain   func(path, dir string) error
}

// NewSidecar returns a sidecar store on fsys. When outputDir is set, every
// destination must resolve inside it.
func NewSidecar(fsys fsutil.FileSystem, outputDir string) *Sidecar {
	s := &Sidecar{fs: fsys, outputDir: outputDir, contain: security.ValidatePathLexically}
	if _, ok := fsys.(fsutil.OSFileSystem); ok {
		s.contain = security.ValidatePathWithinDirectory
	}
	return s
}

// LoadHeader reads the sidecar for path. An image without a sidecar has an
// empty header; a missing image or an unreadable sidecar is an error.
func (s *Sidecar) LoadHeader(path string) (Header, error) {
	fail := func(err error) (Header, error) {
		return Header{}, &PersistenceError{Op: OpLoadHeader, Path: path, Err: err}
	}

	info, err := s.fs.Stat(path)
	if err != nil {
		return fail(err)
	}
	if info.IsDir() {
		return fail(errors.New("is a directory"))
	}

	fields, err := s.readFields(SidecarPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return Header{Fields: map[string]any{}}, nil
	}
	if err != nil {
		return fail(err)
	}
	h, err := headerFromFields(fields)
	if err != nil {
		return fail(err)
	}
	return h, nil
}

func (s *Sidecar) readFields(path string) (map[string]any, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func headerFromFields(fields map[string]any) (Header, error) {
	h := Header{Fields: fields}
	if v, ok := fields["pps_time_us"]; ok {
		n, ok := v.(json.Number)
		if !ok {
			return Header{}, fmt.Errorf("pps_time_us: want a number, got %T", v)
		}
		us, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return Header{}, fmt.Errorf("pps_time_us: %w", err)
		}
		h.PPSTimeMicros, h.HasPPSTime = us, true
	}
	h.Make, _ = fields["make"].(string)
	h.Model, _ = fields["model"].(string)
	return h, nil
}

// SaveTags copies src to dst and writes dst's sidecar.
func (s *Sidecar) SaveTags(rec *tags.Record, src, dst string) error {
	fail := func(err error) error {
		return &PersistenceError{Op: OpSaveTags, Path: dst, Err: err}
	}
	if rec == nil {
		return fail(errors.New("nil record"))
	}
	if s.outputDir != "" {
		if err := s.contain(dst, s.outputDir); err != nil {
			return fail(err)
		}
	}
	if filepath.Clean(src) == filepath.Clean(dst) {
		return fail(errors.New("destination is the source image"))
	}

	extra, err := s.readFields(SidecarPath(src))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fail(err)
	}
	doc, err := encodeFields(rec, extra)
	if err != nil {
		return fail(err)
	}

	if err := fsutil.CopyFile(s.fs, src, dst); err != nil {
		return fail(err)
	}
	if err := s.fs.WriteFile(SidecarPath(dst), doc, 0644); err != nil {
		return fail(err)
	}
	return nil
}

// encodeFields renders rec as a JSON object in schema order. Keys from
// extra that the schema does not define follow in sorted order.
func encodeFields(rec *tags.Record, extra map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	written := make(map[string]bool)
	write := func(name string, v any) error {
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		key, _ := json.Marshal(name)
		if len(written) > 0 {
			buf.WriteString(",")
		}
		buf.Write(key)
		buf.WriteString(":")
		buf.Write(val)
		written[name] = true
		return nil
	}

	for _, f := range rec.Fields() {
		if err := write(f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if _, known := tags.LookupField(k); !known {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := write(k, extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteString("}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
