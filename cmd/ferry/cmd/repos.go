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

var reposOpts = &remoteOptions{}

var reposLast string

var reposCmd = &cobra.Command{
	Use:   "repos <registry>",
	Short: "List the repositories of a registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.Wrap(runRepos(cmd, args[0]), "list repositories")
	},
}

func init() {
	reposOpts.bindFlags(reposCmd)
	reposCmd.Flags().StringVar(&reposLast, "last", "", "start listing after this repository")
	rootCmd.AddCommand(reposCmd)
}

func runRepos(cmd *cobra.Command, name string) error {
	reg, err := reposOpts.newRegistry(name)
	if err != nil {
		return err
	}
	return reg.Repositories(cmd.Context(), reposLast, func(repos []string) error {
		for _, repo := range repos {
			fmt.Fprintln(cmd.OutOrStdout(), repo)
		}
		return nil
	})
}
