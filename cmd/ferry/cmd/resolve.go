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
)

var resolveOpts = &remoteOptions{}

var resolveCmd = &cobra.Command{
	Use:   "resolve <ref>",
	Short: "Resolve a reference to its manifest descriptor digest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.Wrap(runResolve(cmd, args[0]), "resolve")
	},
}

func init() {
	resolveOpts.bindFlags(resolveCmd)
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, rawRef string) error {
	repo, err := resolveOpts.newRepository(rawRef)
	if err != nil {
		return err
	}
	desc, err := repo.Resolve(cmd.Context(), repo.Reference.ReferenceOrDefault())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), desc.Digest)
	return nil
}
