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
	"crypto/tls"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ferry-project/ferry-go/registry/remote"
	"github.com/ferry-project/ferry-go/registry/remote/auth"
	"github.com/ferry-project/ferry-go/registry/remote/credentials"
	"github.com/ferry-project/ferry-go/registry/remote/registryconf"
	"github.com/ferry-project/ferry-go/registry/remote/retry"
)

// remoteOptions holds the flags shared by all commands that talk to a
// registry.
type remoteOptions struct {
	plainHTTP   bool
	insecure    bool
	username    string
	password    string
	concurrency int
}

func (opts *remoteOptions) bindFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&opts.plainHTTP, "plain-http", false, "access the registry via HTTP")
	fs.BoolVar(&opts.insecure, "insecure", false, "skip TLS certificate verification")
	fs.StringVarP(&opts.username, "username", "u", "", "registry username")
	fs.StringVarP(&opts.password, "password", "p", "", "registry password or identity token")
	fs.IntVar(&opts.concurrency, "concurrency", 3, "concurrency level of the copy")
}

// newRepository creates a repository client for the given reference, applying
// the registries.conf rewrite and policy checks when configured.
func (opts *remoteOptions) newRepository(rawRef string) (*remote.Repository, error) {
	rawRef, err := opts.applyRegistriesConfig(rawRef)
	if err != nil {
		return nil, err
	}
	repo, err := remote.NewRepository(rawRef)
	if err != nil {
		return nil, err
	}
	repo.PlainHTTP = opts.plainHTTP
	client, err := opts.authClient(repo.Reference.Host())
	if err != nil {
		return nil, err
	}
	repo.Client = client
	return repo, nil
}

// newRegistry creates a registry client for the given registry name.
func (opts *remoteOptions) newRegistry(name string) (*remote.Registry, error) {
	reg, err := remote.NewRegistry(name)
	if err != nil {
		return nil, err
	}
	reg.PlainHTTP = opts.plainHTTP
	client, err := opts.authClient(reg.Reference.Host())
	if err != nil {
		return nil, err
	}
	reg.Client = client
	return reg, nil
}

// applyRegistriesConfig rewrites the reference according to the configured
// registries.conf and rejects references blocked by it.
func (opts *remoteOptions) applyRegistriesConfig(rawRef string) (string, error) {
	if rootOpts.registriesConf == "" {
		return rawRef, nil
	}
	rc, err := registryconf.LoadRegistriesConfig(rootOpts.registriesConf)
	if err != nil {
		return "", errors.Wrap(err, "load registries.conf")
	}
	if rc.IsBlocked(rawRef) {
		return "", errors.Errorf("registry access blocked by %s: %s", rootOpts.registriesConf, rawRef)
	}
	if reg := rc.FindRegistry(rawRef); reg != nil && reg.Insecure {
		opts.insecure = true
	}
	rewritten := rc.RewriteReference(rawRef)
	if rewritten != rawRef {
		logrus.Debugf("reference %q rewritten to %q", rawRef, rewritten)
	}
	return rewritten, nil
}

// authClient builds an auth client resolving credentials from the flags or
// from the credentials store backing the docker config file.
func (opts *remoteOptions) authClient(host string) (*auth.Client, error) {
	client := &auth.Client{
		Client: opts.httpClient(),
		Cache:  auth.NewCache(),
	}
	client.SetUserAgent("ferry/" + Version)
	if opts.username != "" || opts.password != "" {
		client.Credential = auth.StaticCredential(host, auth.Credential{
			Username: opts.username,
			Password: opts.password,
		})
		return client, nil
	}
	store, err := newCredentialsStore()
	if err != nil {
		return nil, err
	}
	client.Credential = remote.GetCredentialFunc(store)
	return client, nil
}

func (opts *remoteOptions) httpClient() *http.Client {
	if !opts.insecure {
		return retry.DefaultClient
	}
	return &http.Client{
		Transport: retry.NewTransport(&http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}),
	}
}

// newCredentialsStore opens the credentials store backed by the configured
// (or default docker) config file, using native helpers when available.
func newCredentialsStore() (credentials.Store, error) {
	storeOpts := credentials.StoreOptions{
		AllowPlaintextPut:        true,
		DetectDefaultNativeStore: true,
	}
	if rootOpts.configPath != "" {
		store, err := credentials.NewStore(rootOpts.configPath, storeOpts)
		if err != nil {
			return nil, errors.Wrapf(err, "open credentials store %s", rootOpts.configPath)
		}
		return store, nil
	}
	store, err := credentials.NewStoreFromDocker(storeOpts)
	if err != nil {
		return nil, errors.Wrap(err, "open docker credentials store")
	}
	return store, nil
}
