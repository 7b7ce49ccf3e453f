package httpmiddleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Instrument wraps the handler with OpenTelemetry HTTP instrumentation
// under the given service name. Spans are named after the matched route
// when the router exposes one, falling back to the raw method and path.
func Instrument(service string, routeOf func(*http.Request) string, opts ...otelhttp.Option) Middleware {
	opts = append(opts, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		if routeOf != nil {
			if route := routeOf(r); route != "" {
				return r.Method + " " + route
			}
		}
		return r.Method + " " + r.URL.Path
	}))
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service, opts...)
	}
}
