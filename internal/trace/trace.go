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

// Package trace provides request-scoped logging for the HTTP clients of
// ferry-go. Loggers are carried in the context; secrets are scrubbed from
// the logged headers.
package trace

import (
	"context"
	"net/http"

	"github.com/containerd/log"
	"github.com/sirupsen/logrus"
)

// Logger returns the logger carried by the context, or the standard logger
// if the context carries none.
func Logger(ctx context.Context) *logrus.Entry {
	return log.G(ctx)
}

// WithLogger returns a context carrying the given logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return log.WithLogger(ctx, logger)
}

// RequestFields returns log fields describing the request. Credential-bearing
// headers are scrubbed.
func RequestFields(req *http.Request) logrus.Fields {
	return logrus.Fields{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": scrubHeader(req.Header),
	}
}

// ResponseFields returns log fields describing the response.
func ResponseFields(resp *http.Response) logrus.Fields {
	return logrus.Fields{
		"status":  resp.Status,
		"headers": scrubHeader(resp.Header),
	}
}

// scrubHeader copies the header with secret values masked out.
func scrubHeader(header http.Header) http.Header {
	scrubbed := make(http.Header, len(header))
	for name, values := range header {
		if http.CanonicalHeaderKey(name) == "Authorization" {
			scrubbed[name] = []string{"****"}
			continue
		}
		scrubbed[name] = values
	}
	return scrubbed
}
