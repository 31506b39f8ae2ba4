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
	"bufio"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ferry-project/ferry-go/registry/remote"
	"github.com/ferry-project/ferry-go/registry/remote/auth"
	"github.com/ferry-project/ferry-go/registry/remote/retry"
)

type loginOptions struct {
	remoteOptions
	passwordStdin bool
	caFile        string
	certFile      string
	keyFile       string
}

var loginOpts = &loginOptions{}

var loginCmd = &cobra.Command{
	Use:   "login <registry>",
	Short: "Log in to a registry and store the credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.Wrap(runLogin(cmd, args[0]), "login")
	},
}

func init() {
	loginOpts.bindFlags(loginCmd)
	fs := loginCmd.Flags()
	fs.BoolVar(&loginOpts.passwordStdin, "password-stdin", false, "read the password from stdin")
	fs.StringVar(&loginOpts.caFile, "ca-file", "", "CA certificate file for verifying the registry")
	fs.StringVar(&loginOpts.certFile, "cert-file", "", "client certificate file for mutual TLS")
	fs.StringVar(&loginOpts.keyFile, "key-file", "", "client key file for mutual TLS")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, registryName string) error {
	ctx := cmd.Context()

	if loginOpts.passwordStdin {
		password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && password == "" {
			return errors.Wrap(err, "read password from stdin")
		}
		loginOpts.password = strings.TrimRight(password, "\r\n")
	}
	if loginOpts.username == "" {
		return errors.New("missing username, use --username")
	}
	if loginOpts.password == "" {
		return errors.New("missing password, use --password or --password-stdin")
	}

	reg, err := loginOpts.newRegistry(registryName)
	if err != nil {
		return err
	}
	httpClient, err := loginOpts.loginHTTPClient()
	if err != nil {
		return err
	}
	reg.Client = &auth.Client{
		Client: httpClient,
		Cache:  auth.NewCache(),
	}

	store, err := newCredentialsStore()
	if err != nil {
		return err
	}
	cred := auth.Credential{
		Username: loginOpts.username,
		Password: loginOpts.password,
	}
	if err := remote.Login(ctx, store, reg, cred); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Login succeeded")
	return nil
}

// loginHTTPClient builds an HTTP client honoring the TLS flags.
func (opts *loginOptions) loginHTTPClient() (*http.Client, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: opts.insecure,
	}
	if opts.caFile != "" {
		pem, err := os.ReadFile(opts.caFile)
		if err != nil {
			return nil, errors.Wrapf(err, "read CA file %s", opts.caFile)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates found in %s", opts.caFile)
		}
		tlsConfig.RootCAs = pool
	}
	if opts.certFile != "" || opts.keyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.certFile, opts.keyFile)
		if err != nil {
			return nil, errors.Wrap(err, "load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return &http.Client{
		Transport: retry.NewTransport(&http.Transport{
			TLSClientConfig: tlsConfig,
		}),
	}, nil
}
