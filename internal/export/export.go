// Package export bundles a run's published artifacts for download.
//
// A bundle holds a metadata.json describing the source, the sampling
// settings, the tile plan and the output, followed by one entry per tile
// named "<tile>.<ext>" with one-based tile numbers.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"slyce/internal/artifacts"
	"slyce/internal/fileutil"
)

// DefaultCompressionLevel balances speed and size for DEFLATE entries.
const DefaultCompressionLevel = 6

// MetadataName is the bundle entry describing the run.
const MetadataName = "metadata.json"

// ErrNoArtifacts is returned when a run has nothing to export.
var ErrNoArtifacts = errors.New("run has no published artifacts")

// Metadata is the document written to metadata.json.
type Metadata struct {
	GeneratedBy string          `json:"generatedBy"`
	GeneratedAt time.Time       `json:"generatedAt"`
	RunID       string          `json:"runId"`
	Status      string          `json:"status"`
	Video       json.RawMessage `json:"video,omitempty"`
	Settings    json.RawMessage `json:"settings,omitempty"`
	TilePlan    json.RawMessage `json:"tilePlan,omitempty"`
	Output      Output          `json:"output"`
}

// Output summarizes the bundled files.
type Output struct {
	Format    string  `json:"format"`
	MimeType  string  `json:"mimeType"`
	TileCount int     `json:"tileCount"`
	Files     []Entry `json:"files"`
}

// Entry describes one bundled tile.
type Entry struct {
	Name   string `json:"name"`
	Tile   int    `json:"tile"`
	Bytes  int64  `json:"bytes"`
	SHA256 string `json:"sha256"`
	Layers int    `json:"layers"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Options tunes bundle output.
type Options struct {
	Level int
	Now   func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Level < 0 || o.Level > 9 {
		o.Level = DefaultCompressionLevel
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// BundleName returns "<source base name>_tiles.zip".
func BundleName(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "video"
	}
	return base + "_tiles.zip"
}

// MimeType returns the media type for an artifact kind.
func MimeType(kind string) string {
	switch kind {
	case "ktx2":
		return "image/ktx2"
	case "webm":
		return "video/webm"
	}
	if t := mime.TypeByExtension("." + kind); t != "" {
		return t
	}
	return "application/octet-stream"
}

// BuildMetadata assembles the metadata document for a run.
func BuildMetadata(run *artifacts.Run, list []*artifacts.Artifact, now time.Time) Metadata {
	kind := ""
	if len(list) > 0 {
		kind = list[0].Kind
	}
	meta := Metadata{
		GeneratedBy: "slyce",
		GeneratedAt: now.UTC(),
		RunID:       run.ID,
		Status:      string(run.Status),
		Video:       rawOrNil(run.VideoJSON),
		Settings:    rawOrNil(run.SettingsJSON),
		TilePlan:    rawOrNil(run.PlanJSON),
		Output: Output{
			Format:    kind,
			MimeType:  MimeType(kind),
			TileCount: len(list),
			Files:     make([]Entry, 0, len(list)),
		},
	}
	for _, a := range list {
		meta.Output.Files = append(meta.Output.Files, Entry{
			Name:   a.FileName(),
			Tile:   a.Tile + 1,
			Bytes:  a.Bytes,
			SHA256: a.SHA256,
			Layers: a.Layers,
			Width:  a.Width,
			Height: a.Height,
		})
	}
	return meta
}

func rawOrNil(raw string) json.RawMessage {
	if raw == "" {
		return nil
	}
	return json.RawMessage(raw)
}

func verify(a *artifacts.Artifact) error {
	sum, size, err := artifacts.Checksum(a.Path)
	if err != nil {
		return err
	}
	if size != a.Bytes || sum != a.SHA256 {
		return fmt.Errorf("artifact %s changed since it was published", a.Path)
	}
	return nil
}

// WriteZip streams a ZIP bundle of the run's artifacts to w. Each artifact is
// verified against its recorded checksum before it is added.
func WriteZip(w io.Writer, run *artifacts.Run, list []*artifacts.Artifact, opts Options) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if len(list) == 0 {
		return ErrNoArtifacts
	}
	opts = opts.withDefaults()
	now := opts.Now()

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, opts.Level)
	})

	meta, err := json.MarshalIndent(BuildMetadata(run, list, now), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := writeEntry(zw, MetadataName, now, func(dst io.Writer) error {
		_, err := dst.Write(meta)
		return err
	}); err != nil {
		return err
	}

	for _, a := range list {
		if err := verify(a); err != nil {
			return err
		}
		if err := writeEntry(zw, a.FileName(), now, func(dst io.Writer) error {
			f, err := os.Open(a.Path)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(dst, f)
			return err
		}); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, fill func(io.Writer) error) error {
	dst, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if err := fill(dst); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// WriteZipFile writes the bundle to path without leaving a partial file behind.
func WriteZipFile(path string, run *artifacts.Run, list []*artifacts.Artifact, opts Options) error {
	return fileutil.AtomicWrite(path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return err
		}
		if err := WriteZip(f, run, list, opts); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	})
}

// WriteDir copies the artifacts and metadata.json into dir unpacked.
func WriteDir(dir string, run *artifacts.Run, list []*artifacts.Artifact, opts Options) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if len(list) == 0 {
		return ErrNoArtifacts
	}
	opts = opts.withDefaults()
	for _, a := range list {
		if err := verify(a); err != nil {
			return err
		}
		if err := fileutil.CopyFileVerified(a.Path, filepath.Join(dir, a.FileName())); err != nil {
			return fmt.Errorf("copy %s: %w", a.FileName(), err)
		}
	}
	meta, err := json.MarshalIndent(BuildMetadata(run, list, opts.Now()), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return fileutil.WriteFileAtomic(filepath.Join(dir, MetadataName), meta)
}
