// Package registry fetches policy documents distributed as OCI
// artifacts. A policy image is a single-layer image whose layer tarball
// contains one JSON or YAML policy file.
package registry

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
)

// DefaultMaxPolicySize caps the extracted policy file.
const DefaultMaxPolicySize = 4 * 1024 * 1024

// PullPolicy resolves an OCI reference, pulls the image, and extracts
// the policy document from its layers. The second return is the
// digest-pinned reference the policy actually came from.
func PullPolicy(ctx context.Context, imageRef string, maxSize int64) ([]byte, string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxPolicySize
	}

	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse policy reference: %w", err)
	}

	digest, err := crane.Digest(ref.String(), crane.WithContext(ctx))
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve digest: %w", err)
	}
	pinned := ref.Context().Name() + "@" + digest

	img, err := crane.Pull(pinned, crane.WithContext(ctx))
	if err != nil {
		return nil, "", fmt.Errorf("failed to pull policy image: %w", err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image layers: %w", err)
	}

	for _, layer := range layers {
		data, err := extractPolicyFromLayer(layer, maxSize)
		if err != nil {
			return nil, "", err
		}
		if data != nil {
			return data, pinned, nil
		}
	}

	return nil, "", fmt.Errorf("no policy document found in %s", pinned)
}

type uncompressedOpener interface {
	Uncompressed() (io.ReadCloser, error)
}

// extractPolicyFromLayer scans one layer tarball for the first policy
// file. Returns (nil, nil) when the layer holds none.
func extractPolicyFromLayer(layer uncompressedOpener, maxSize int64) ([]byte, error) {
	rc, err := layer.Uncompressed()
	if err != nil {
		return nil, fmt.Errorf("failed to open layer: %w", err)
	}
	defer rc.Close()

	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read layer tar: %w", err)
		}

		if hdr.Typeflag != tar.TypeReg || !isPolicyFileName(hdr.Name) {
			continue
		}
		if hdr.Size > maxSize {
			return nil, fmt.Errorf("policy %s exceeds maximum size limit (%d bytes > %d bytes)", hdr.Name, hdr.Size, maxSize)
		}

		data, err := io.ReadAll(io.LimitReader(tr, maxSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
		}
		if int64(len(data)) > maxSize {
			return nil, fmt.Errorf("policy %s exceeds maximum size limit (%d bytes)", hdr.Name, maxSize)
		}
		return data, nil
	}
}

func isPolicyFileName(p string) bool {
	switch strings.ToLower(path.Ext(path.Base(p))) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
