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

package cmd

import (
	"fmt"
	"os"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	ferry "github.com/ferry-project/ferry-go"
	"github.com/ferry-project/ferry-go/content/file"
)

const defaultBlobMediaType = "application/vnd.oci.image.layer.v1.tar"

type pushOptions struct {
	remoteOptions
	artifactType string
}

var pushOpts = &pushOptions{}

var pushCmd = &cobra.Command{
	Use:   "push <ref> <file>[:mediatype] [...]",
	Short: "Push files to a registry as an OCI artifact",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.Wrap(runPush(cmd, args[0], args[1:]), "push")
	},
}

func init() {
	pushOpts.bindFlags(pushCmd)
	pushCmd.Flags().StringVar(&pushOpts.artifactType, "artifact-type", "application/vnd.unknown.artifact.v1", "artifact type of the packed manifest")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, rawRef string, fileRefs []string) error {
	ctx := cmd.Context()

	workingDir, err := os.Getwd()
	if err != nil {
		return err
	}
	store, err := file.New(workingDir)
	if err != nil {
		return err
	}
	defer store.Close()

	var layers []ocispec.Descriptor
	for _, fileRef := range fileRefs {
		name, mediaType := parseFileReference(fileRef)
		desc, err := store.Add(ctx, name, mediaType, "")
		if err != nil {
			return errors.Wrapf(err, "add %s", name)
		}
		layers = append(layers, desc)
	}

	manifestDesc, err := ferry.PackManifest(ctx, store, ferry.PackManifestVersion1_1,
		pushOpts.artifactType, ferry.PackManifestOptions{
			Layers: layers,
		})
	if err != nil {
		return err
	}

	repo, err := pushOpts.newRepository(rawRef)
	if err != nil {
		return err
	}
	tag := repo.Reference.ReferenceOrDefault()
	if err := store.Tag(ctx, manifestDesc, tag); err != nil {
		return err
	}

	manager := newStatusManager(cmd.OutOrStdout(), "Uploading")
	defer manager.Close()
	dst := trackTarget(repo, manager)
	pushed, err := ferry.Copy(ctx, store, tag, dst, tag, pushOpts.newCopyOptions(manager))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Pushed", repo.Reference)
	fmt.Fprintln(cmd.OutOrStdout(), "Digest:", pushed.Digest)
	return nil
}

// parseFileReference splits a file argument of the form name[:mediatype].
// Windows drive letters such as C:\path are kept as part of the name.
func parseFileReference(fileRef string) (name, mediaType string) {
	i := strings.LastIndex(fileRef, ":")
	if i < 0 || strings.ContainsAny(fileRef[i+1:], "\\/") {
		return fileRef, defaultBlobMediaType
	}
	return fileRef[:i], fileRef[i+1:]
}
