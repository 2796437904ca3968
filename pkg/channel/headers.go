package channel

import "net/http"

// headerTransport adds fixed headers to every outgoing request, for example
// an Authorization header required by a remote backend.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}

// httpClientWithHeaders returns base unchanged when there are no headers,
// otherwise a copy whose transport injects them.
func httpClientWithHeaders(base *http.Client, headers map[string]string) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	if len(headers) == 0 {
		return base
	}

	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}

	client := *base
	client.Transport = &headerTransport{base: rt, headers: headers}
	return &client
}
