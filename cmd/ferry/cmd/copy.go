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

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	ferry "github.com/ferry-project/ferry-go"
)

type copyOptions struct {
	remoteOptions
	recursive bool
}

var copyOpts = &copyOptions{}

var copyCmd = &cobra.Command{
	Use:     "copy <src-ref> <dst-ref>",
	Aliases: []string{"cp"},
	Short:   "Copy an artifact between registries",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.Wrap(runCopy(cmd, args[0], args[1]), "copy")
	},
}

func init() {
	copyOpts.bindFlags(copyCmd)
	copyCmd.Flags().BoolVarP(&copyOpts.recursive, "recursive", "r", false, "also copy the artifacts that refer to the copied artifact")
	rootCmd.AddCommand(copyCmd)
}

func runCopy(cmd *cobra.Command, srcRef, dstRef string) error {
	ctx := cmd.Context()

	src, err := copyOpts.newRepository(srcRef)
	if err != nil {
		return err
	}
	dstRepo, err := copyOpts.newRepository(dstRef)
	if err != nil {
		return err
	}

	manager := newStatusManager(cmd.OutOrStdout(), "Copying")
	defer manager.Close()
	dst := trackTarget(dstRepo, manager)
	srcTag := src.Reference.ReferenceOrDefault()
	dstTag := dstRepo.Reference.ReferenceOrDefault()

	var copied ocispec.Descriptor
	if copyOpts.recursive {
		extOpts := ferry.DefaultExtendedCopyOptions
		extOpts.CopyGraphOptions = copyOpts.newCopyOptions(manager).CopyGraphOptions
		copied, err = ferry.ExtendedCopy(ctx, src, srcTag, dst, dstTag, extOpts)
	} else {
		copied, err = ferry.Copy(ctx, src, srcTag, dst, dstTag, copyOpts.newCopyOptions(manager))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Copied", src.Reference, "->", dstRepo.Reference)
	fmt.Fprintln(cmd.OutOrStdout(), "Digest:", copied.Digest)
	return nil
}
