package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// KeyFunc derives the rate-limit key for a request.
type KeyFunc func(r *http.Request) string

// RejectFunc writes the rejection response. The middleware has already
// set the X-RateLimit-* headers when it is called.
type RejectFunc func(w http.ResponseWriter, r *http.Request, d Decision)

// Options configures the admission middleware.
type Options struct {
	Limiter            *Limiter
	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
	OnReject           RejectFunc
}

// DefaultKeyFunc identifies the client by the given header if present,
// then the first X-Forwarded-For hop when trusted, then the remote host.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Middleware admits or rejects every request before the next handler
// runs. Admitted and rejected responses both carry the rate headers so
// clients can pace themselves.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.OnReject == nil {
		opts.OnReject = func(w http.ResponseWriter, r *http.Request, d Decision) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			dec := opts.Limiter.Admit(opts.KeyFn(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(opts.Limiter.Limit()))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.Unix(), 10))

			if !dec.Allowed {
				retry := int(dec.ResetAt.Sub(now).Seconds())
				if retry < 1 {
					retry = 1
				}
				h.Set("Retry-After", strconv.Itoa(retry))
				opts.OnReject(w, r, dec)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
