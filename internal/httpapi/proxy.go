package httpapi

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"invoice-console/internal/session"
	"invoice-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Proxy forwards /api/* to the backend through the gateway's interceptor, so the
// browser never holds the bearer token itself.
func Proxy(gw *session.Gateway) gin.HandlerFunc {
	target, err := url.Parse(gw.BaseURL())
	if err != nil {
		panic("httpapi: gateway base url is not a url: " + err.Error())
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
			// credentials come from the gateway, never from the browser
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("Cookie")
		},
		Transport: gw.Client().Transport,
		ModifyResponse: func(resp *http.Response) error {
			// a rejection of a token a newer login replaced leaves that login alone
			if session.IsAuthFailure(resp.StatusCode) && gw.Cookie().Value == "" {
				resp.Header.Set(HeaderSessionRedirect, session.LoginPath)
				resp.Header.Add("Set-Cookie", gw.Cookie().String())
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.From(r.Context()).Error("proxy request failed", "path", r.URL.Path, "err", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"backend unavailable"}`))
		},
	}

	return func(c *gin.Context) {
		// login has to go through the gateway to be persisted
		if strings.TrimSuffix(c.Param("path"), "/") == strings.TrimPrefix(session.LoginEndpoint, "/api") {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "use POST /login"})
			return
		}
		rp.ServeHTTP(c.Writer, c.Request)
	}
}
