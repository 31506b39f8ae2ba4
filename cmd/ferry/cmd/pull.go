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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	ferry "github.com/ferry-project/ferry-go"
	"github.com/ferry-project/ferry-go/content/file"
)

type pullOptions struct {
	remoteOptions
	output string
}

var pullOpts = &pullOptions{}

var pullCmd = &cobra.Command{
	Use:   "pull <ref>",
	Short: "Pull an OCI artifact from a registry into a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.Wrap(runPull(cmd, args[0]), "pull")
	},
}

func init() {
	pullOpts.bindFlags(pullCmd)
	pullCmd.Flags().StringVarP(&pullOpts.output, "output", "o", ".", "output directory")
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, rawRef string) error {
	ctx := cmd.Context()

	repo, err := pullOpts.newRepository(rawRef)
	if err != nil {
		return err
	}
	store, err := file.New(pullOpts.output)
	if err != nil {
		return err
	}
	defer store.Close()

	manager := newStatusManager(cmd.OutOrStdout(), "Downloading")
	defer manager.Close()
	dst := trackTarget(store, manager)
	tag := repo.Reference.ReferenceOrDefault()
	pulled, err := ferry.Copy(ctx, repo, tag, dst, tag, pullOpts.newCopyOptions(manager))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Pulled", repo.Reference)
	fmt.Fprintln(cmd.OutOrStdout(), "Digest:", pulled.Digest)
	return nil
}
