package archive

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBundleContainsManifestLast(t *testing.T) {
	bundler := NewBundler(NewSHA256())
	bundle, err := bundler.Bundle(NewBuilder(), testSnapshot(t))
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(bundle.Container), int64(len(bundle.Container)))
	require.NoError(t, err)
	require.Len(t, reader.File, 8)
	require.Equal(t, ArtifactManifest, reader.File[len(reader.File)-1].Name)

	rc, err := reader.File[len(reader.File)-1].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	var manifest Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	require.Equal(t, "SHA-256", manifest.Algorithm)
	require.Len(t, manifest.Files, 7)
	for _, f := range manifest.Files {
		require.NotEqual(t, ArtifactManifest, f.Name, "manifest must not hash itself")
		require.Len(t, f.SHA256, 64)
	}
}

func TestBundleDigestCoversContainer(t *testing.T) {
	bundler := NewBundler(NewSHA256())
	bundle, err := bundler.Bundle(NewBuilder(), testSnapshot(t))
	require.NoError(t, err)

	sum := sha256.Sum256(bundle.Container)
	require.Equal(t, hex.EncodeToString(sum[:]), bundle.Digest)
	require.Equal(t, bundle.Name+".sha256", bundle.DigestName())
}

func TestBundleManifestEntriesMatchArtifacts(t *testing.T) {
	bundler := NewBundler(NewSHA256())
	bundle, err := bundler.Bundle(NewBuilder(), testSnapshot(t))
	require.NoError(t, err)

	byName := map[string]Artifact{}
	for _, a := range bundle.Artifacts {
		byName[a.Name] = a
	}
	for _, f := range bundle.Manifest.Files {
		artifact, ok := byName[f.Name]
		require.True(t, ok)
		sum := sha256.Sum256(artifact.Data)
		require.Equal(t, hex.EncodeToString(sum[:]), f.SHA256)
		require.Equal(t, int64(len(artifact.Data)), f.Size)
	}
}

func TestBundleIsDeterministic(t *testing.T) {
	bundler := NewBundler(NewSHA256())
	snap := testSnapshot(t)
	first, err := bundler.Bundle(NewBuilder(), snap)
	require.NoError(t, err)
	second, err := bundler.Bundle(NewBuilder(), snap)
	require.NoError(t, err)
	require.Equal(t, first.Container, second.Container)
	require.Equal(t, first.Digest, second.Digest)
}

func TestBundleWithoutHasherFails(t *testing.T) {
	bundler := NewBundler(nil)
	_, err := bundler.Bundle(NewBuilder(), testSnapshot(t))
	require.ErrorIs(t, err, ErrIntegrityUnavailable)
}

func TestBundleNameMarksDrafts(t *testing.T) {
	snap := testSnapshot(t)
	bundler := NewBundler(NewSHA256())

	final, err := bundler.Bundle(NewBuilder(), snap)
	require.NoError(t, err)
	require.Equal(t, "reconciliation_room-1_20250607T220000Z.zip", final.Name)
	require.False(t, final.Draft)

	snap.Record.ApprovedBy = ""
	snap.Record.ApprovedAt = nil
	snap.Draft = true
	draft, err := bundler.Bundle(NewBuilder(), snap)
	require.NoError(t, err)
	require.Equal(t, "reconciliation_room-1_20250607T220000Z_DRAFT.zip", draft.Name)
	require.True(t, draft.Draft)
}
