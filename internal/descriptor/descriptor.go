/*
Copyright The Ferry Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package descriptor

import (
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	artifactspec "github.com/oras-project/artifacts-spec/specs-go/v1"

	"github.com/ferry-project/ferry-go/internal/docker"
	"github.com/ferry-project/ferry-go/internal/spec"
)

// Descriptor is the minimal identity of targeted content: the basic
// descriptor triple. Since it contains only strings and integers, it is
// comparable and usable as a map key.
type Descriptor struct {
	// MediaType is the media type of the object this schema refers to.
	MediaType string `json:"mediaType,omitempty"`

	// Digest is the digest of the targeted content.
	Digest digest.Digest `json:"digest"`

	// Size specifies the size in bytes of the blob.
	Size int64 `json:"size"`
}

// Empty is an empty descriptor.
var Empty Descriptor

// DefaultMediaType is the media type used when no media type is specified.
const DefaultMediaType = "application/octet-stream"

// FromOCI shrinks the OCI descriptor to the basic triple.
func FromOCI(desc ocispec.Descriptor) Descriptor {
	return Descriptor{
		MediaType: desc.MediaType,
		Digest:    desc.Digest,
		Size:      desc.Size,
	}
}

// IsForeignLayer reports whether the descriptor describes a foreign layer,
// which is never copied between targets.
func IsForeignLayer(desc ocispec.Descriptor) bool {
	switch desc.MediaType {
	case ocispec.MediaTypeImageLayerNonDistributable,
		ocispec.MediaTypeImageLayerNonDistributableGzip,
		ocispec.MediaTypeImageLayerNonDistributableZstd,
		docker.MediaTypeForeignLayer:
		return true
	default:
		return false
	}
}

// IsManifest reports whether the descriptor describes a manifest or an index
// of any recognized flavor.
func IsManifest(desc ocispec.Descriptor) bool {
	switch desc.MediaType {
	case docker.MediaTypeManifest,
		docker.MediaTypeManifestList,
		ocispec.MediaTypeImageManifest,
		ocispec.MediaTypeImageIndex,
		spec.MediaTypeArtifactManifest:
		return true
	default:
		return false
	}
}

// Plain returns a plain descriptor that contains only the basic triple,
// dropping annotations and any other decoration.
func Plain(desc ocispec.Descriptor) ocispec.Descriptor {
	return ocispec.Descriptor{
		MediaType: desc.MediaType,
		Digest:    desc.Digest,
		Size:      desc.Size,
	}
}

// ArtifactToOCI converts an artifact descriptor to an OCI descriptor.
func ArtifactToOCI(desc artifactspec.Descriptor) ocispec.Descriptor {
	return ocispec.Descriptor{
		MediaType:   desc.MediaType,
		Digest:      desc.Digest,
		Size:        desc.Size,
		URLs:        desc.URLs,
		Annotations: desc.Annotations,
	}
}

// OCIToArtifact converts an OCI descriptor to an artifact descriptor.
func OCIToArtifact(desc ocispec.Descriptor) artifactspec.Descriptor {
	return artifactspec.Descriptor{
		MediaType:   desc.MediaType,
		Digest:      desc.Digest,
		Size:        desc.Size,
		URLs:        desc.URLs,
		Annotations: desc.Annotations,
	}
}
