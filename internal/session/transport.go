package session

import (
	"net/http"
	"strconv"

	"invoice-console/pkg/logger"

	"github.com/google/uuid"
)

// transport is the interceptor installed on the gateway's client. It reads the
// token from the gateway on every call, so a login or logout takes effect for
// any request issued after it completes.
type transport struct {
	base http.RoundTripper
	g    *Gateway
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.g.currentToken()

	// RoundTrippers must not mutate the caller's request.
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
		setCookie(out, tokenCookie(token))
	}
	if out.Header.Get(logger.HeaderRequestID) == "" {
		rid := logger.RequestID(req.Context())
		if rid == "" {
			rid = uuid.NewString()
		}
		out.Header.Set(logger.HeaderRequestID, rid)
	}
	OutboundRequestsTotal.WithLabelValues(strconv.FormatBool(token != "")).Inc()

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	// NewResponseError reads the sent token back from here.
	resp.Request = out
	if IsAuthFailure(resp.StatusCode) {
		t.g.expire(req.Context(), token, resp.StatusCode)
	}
	return resp, nil
}

// setCookie replaces any cookie named c.Name already on the request.
func setCookie(req *http.Request, c *http.Cookie) {
	existing := req.Cookies()
	req.Header.Del("Cookie")
	for _, ec := range existing {
		if ec.Name == c.Name {
			continue
		}
		req.AddCookie(ec)
	}
	req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
}
