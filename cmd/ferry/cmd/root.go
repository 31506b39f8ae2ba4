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
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is the version of the ferry CLI. It is overridden at build time.
var Version = "0.0.0-dev"

type rootOptions struct {
	verbose        bool
	configPath     string
	registriesConf string
}

var rootOpts = &rootOptions{}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ferry",
	Short: "Work with OCI registries and artifacts",
	Long: `ferry - push, pull and manage OCI artifacts

ferry is a thin command line wrapper over the ferry-go library. All commands
take references of the form registry[/repository][:tag|@digest].
`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRun:  initLogging,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

// Execute adds all child commands to the root command and sets flags.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&rootOpts.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&rootOpts.configPath, "config", "", "path of the authentication config file (default: docker config)")
	pf.StringVar(&rootOpts.registriesConf, "registries-conf", "", "path of a registries.conf file to apply")
}

func initLogging(*cobra.Command, []string) {
	if rootOpts.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}
