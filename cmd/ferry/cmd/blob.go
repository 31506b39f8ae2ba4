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
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ferry-project/ferry-go/content"
)

type blobOptions struct {
	remoteOptions
	output    string
	mediaType string
}

var blobOpts = &blobOptions{}

var blobCmd = &cobra.Command{
	Use:   "blob",
	Short: "Work with blobs in a registry",
}

var blobFetchCmd = &cobra.Command{
	Use:   "fetch <ref@digest>",
	Short: "Fetch a blob from a registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.Wrap(runBlobFetch(cmd, args[0]), "fetch blob")
	},
}

var blobPushCmd = &cobra.Command{
	Use:   "push <ref> <file>",
	Short: "Push a blob to a registry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.Wrap(runBlobPush(cmd, args[0], args[1]), "push blob")
	},
}

func init() {
	blobOpts.bindFlags(blobFetchCmd)
	blobOpts.bindFlags(blobPushCmd)
	blobFetchCmd.Flags().StringVarP(&blobOpts.output, "output", "o", "-", "output file, or - for stdout")
	blobPushCmd.Flags().StringVar(&blobOpts.mediaType, "media-type", "application/octet-stream", "media type of the blob")
	blobCmd.AddCommand(blobFetchCmd, blobPushCmd)
	rootCmd.AddCommand(blobCmd)
}

func runBlobFetch(cmd *cobra.Command, rawRef string) error {
	ctx := cmd.Context()

	repo, err := blobOpts.newRepository(rawRef)
	if err != nil {
		return err
	}
	if _, err := repo.Reference.Digest(); err != nil {
		return errors.Wrap(err, "blob reference must contain a digest")
	}
	desc, rc, err := repo.Blobs().FetchReference(ctx, repo.Reference.Reference)
	if err != nil {
		return err
	}
	defer rc.Close()

	var w io.Writer
	if blobOpts.output == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(blobOpts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	vr := content.NewVerifyReader(rc, desc)
	if _, err := io.Copy(w, vr); err != nil {
		return err
	}
	return vr.Verify()
}

func runBlobPush(cmd *cobra.Command, rawRef, path string) error {
	ctx := cmd.Context()

	repo, err := blobOpts.newRepository(rawRef)
	if err != nil {
		return err
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	desc := content.NewDescriptorFromBytes(blobOpts.mediaType, blob)
	if err := repo.Blobs().Push(ctx, desc, bytes.NewReader(blob)); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Digest:", desc.Digest)
	return nil
}
