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

	"github.com/ferry-project/ferry-go/registry/remote"
)

var logoutCmd = &cobra.Command{
	Use:   "logout <registry>",
	Short: "Log out of a registry and remove the stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.Wrap(runLogout(cmd, args[0]), "logout")
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, registryName string) error {
	store, err := newCredentialsStore()
	if err != nil {
		return err
	}
	if err := remote.Logout(cmd.Context(), store, registryName); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logout succeeded")
	return nil
}
