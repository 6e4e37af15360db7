package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Bundler packs rendered artifacts into a verifiable container. The
// manifest is built after every artifact is final so it can carry the
// digest of each file; the manifest itself is never self-hashed.
type Bundler struct {
	hasher Hasher
}

// NewBundler constructs a Bundler. hasher may be nil, in which case any
// attempt to build a bundle fails with ErrIntegrityUnavailable.
func NewBundler(hasher Hasher) *Bundler {
	return &Bundler{hasher: hasher}
}

// Bundle renders the snapshot into a zip container with a manifest and a
// detached digest computed over the container bytes.
func (b *Bundler) Bundle(builder *Builder, snap Snapshot) (*Bundle, error) {
	if b.hasher == nil {
		return nil, ErrIntegrityUnavailable
	}
	artifacts, err := builder.Build(snap)
	if err != nil {
		return nil, err
	}

	manifest := Manifest{
		Algorithm: b.hasher.Algorithm(),
		CreatedAt: snap.GeneratedAt.UTC(),
		Files:     make([]ManifestFile, 0, len(artifacts)),
	}
	for _, artifact := range artifacts {
		manifest.Files = append(manifest.Files, ManifestFile{
			Name:   artifact.Name,
			Size:   int64(len(artifact.Data)),
			SHA256: b.hasher.SumHex(artifact.Data),
		})
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, &RenderError{Artifact: ArtifactManifest, Err: err}
	}
	artifacts = append(artifacts, Artifact{
		Name:        ArtifactManifest,
		ContentType: "application/json",
		Data:        manifestData,
	})

	container, err := packZip(artifacts)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Name:      bundleName(snap),
		Container: container,
		Digest:    b.hasher.SumHex(container),
		Manifest:  manifest,
		Artifacts: artifacts,
		Draft:     !snap.Record.Approved(),
	}, nil
}

// packZip writes the artifacts into a zip archive with zeroed file
// timestamps so identical inputs always produce identical bytes.
func packZip(artifacts []Artifact) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, artifact := range artifacts {
		header := &zip.FileHeader{
			Name:     artifact.Name,
			Method:   zip.Deflate,
			Modified: time.Time{},
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", artifact.Name, err)
		}
		if _, err := w.Write(artifact.Data); err != nil {
			return nil, fmt.Errorf("bundle %s: %w", artifact.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("bundle close: %w", err)
	}
	return buf.Bytes(), nil
}

func bundleName(snap Snapshot) string {
	stamp := snap.GeneratedAt.UTC().Format("20060102T150405Z")
	if snap.Record.Approved() {
		return fmt.Sprintf("reconciliation_%s_%s.zip", snap.Room.ID, stamp)
	}
	return fmt.Sprintf("reconciliation_%s_%s_DRAFT.zip", snap.Room.ID, stamp)
}
