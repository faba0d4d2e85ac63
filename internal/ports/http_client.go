package ports

import "net/http"

// HTTPClient is the transport used by the validation client.
// *http.Client satisfies it; tests substitute a recording fake.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
