package llm

import (
	"net/http"
	"time"

	"github.com/ppiankov/faultline/internal/util"
)

const defaultTimeout = 60 * time.Second

// newHTTPClient builds the transport shared by the HTTP-based providers
func newHTTPClient(config Config, fallback time.Duration) *http.Client {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = fallback
	}
	return util.NewHTTPClient(timeout, config.HTTPProxy, config.HTTPSProxy, config.NoProxy)
}
