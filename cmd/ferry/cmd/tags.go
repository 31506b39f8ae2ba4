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

var tagsOpts = &remoteOptions{}

var tagsLast string

var tagsCmd = &cobra.Command{
	Use:   "tags <registry/repository>",
	Short: "List the tags of a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.Wrap(runTags(cmd, args[0]), "list tags")
	},
}

func init() {
	tagsOpts.bindFlags(tagsCmd)
	tagsCmd.Flags().StringVar(&tagsLast, "last", "", "start listing after this tag")
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, rawRef string) error {
	repo, err := tagsOpts.newRepository(rawRef)
	if err != nil {
		return err
	}
	return repo.Tags(cmd.Context(), tagsLast, func(tags []string) error {
		for _, tag := range tags {
			fmt.Fprintln(cmd.OutOrStdout(), tag)
		}
		return nil
	})
}
