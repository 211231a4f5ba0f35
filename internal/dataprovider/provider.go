// Package dataprovider speaks the simple-REST dialect of the invoicing backend
// through the session gateway's authenticated client.
package dataprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"invoice-console/internal/session"
)

// APIPrefix is prepended to every resource path.
const APIPrefix = "/api"

// TotalCountHeader carries the unpaginated size of a list.
const TotalCountHeader = "X-Total-Count"

const maxErrorBody = 64 << 10

// Provider issues data operations. Every failure passes through the gateway's
// OnError before it is returned, so a 401/403 always ends the session.
type Provider struct {
	gw     *session.Gateway
	client *http.Client
	apiURL string
	log    *slog.Logger
}

func New(gw *session.Gateway, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	return &Provider{
		gw:     gw,
		client: gw.Client(),
		apiURL: gw.BaseURL() + APIPrefix,
		log:    log,
	}
}

// GetList fetches one page of resource into dst (a pointer to a slice) and
// returns the total count reported by the backend.
func (p *Provider) GetList(ctx context.Context, resource string, params ListParams, dst any) (int, error) {
	q, err := params.Query()
	if err != nil {
		return 0, fmt.Errorf("get list %s: %w", resource, err)
	}

	resp, err := p.do(ctx, http.MethodGet, resourcePath(resource), q, nil, "")
	if err != nil {
		return 0, p.fail(ctx, fmt.Errorf("get list %s: %w", resource, err))
	}
	defer func() { _ = resp.Body.Close() }()

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, p.fail(ctx, fmt.Errorf("decode %s list: %w", resource, err))
	}
	if dst != nil {
		buf, err := json.Marshal(raw)
		if err != nil {
			return 0, err
		}
		if err := json.Unmarshal(buf, dst); err != nil {
			return 0, p.fail(ctx, fmt.Errorf("decode %s list: %w", resource, err))
		}
	}

	total := len(raw)
	if h := resp.Header.Get(TotalCountHeader); h != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(h)); err == nil {
			total = n
		} else {
			p.log.Warn("ignoring malformed total count", "resource", resource, "value", h)
		}
	}
	return total, nil
}

// GetOne fetches a single record.
func (p *Provider) GetOne(ctx context.Context, resource, id string, dst any) error {
	return p.call(ctx, http.MethodGet, resourcePath(resource, id), nil, nil, dst)
}

// GetMany fetches the records whose ids are listed.
func (p *Provider) GetMany(ctx context.Context, resource string, ids []string, dst any) error {
	q := url.Values{}
	for _, id := range ids {
		q.Add("id", id)
	}
	return p.call(ctx, http.MethodGet, resourcePath(resource), q, nil, dst)
}

func (p *Provider) Create(ctx context.Context, resource string, body, dst any) error {
	return p.call(ctx, http.MethodPost, resourcePath(resource), nil, body, dst)
}

func (p *Provider) Update(ctx context.Context, resource, id string, body, dst any) error {
	return p.call(ctx, http.MethodPatch, resourcePath(resource, id), nil, body, dst)
}

func (p *Provider) Delete(ctx context.Context, resource, id string, dst any) error {
	return p.call(ctx, http.MethodDelete, resourcePath(resource, id), nil, nil, dst)
}

// Custom calls an arbitrary endpoint below the API prefix with a JSON body.
func (p *Provider) Custom(ctx context.Context, method, path string, body, dst any) error {
	return p.call(ctx, method, path, nil, body, dst)
}

// DownloadResult describes a streamed file.
type DownloadResult struct {
	Filename    string
	ContentType string
	Bytes       int64
}

// Download streams the response body of a call to w.
func (p *Provider) Download(ctx context.Context, method, path string, body any, w io.Writer) (DownloadResult, error) {
	rdr, ctype, err := encodeJSON(body)
	if err != nil {
		return DownloadResult{}, p.fail(ctx, err)
	}
	resp, err := p.do(ctx, method, path, nil, rdr, ctype)
	if err != nil {
		return DownloadResult{}, p.fail(ctx, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return DownloadResult{}, p.fail(ctx, fmt.Errorf("stream %s: %w", path, err))
	}
	return DownloadResult{
		Filename:    attachmentName(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Bytes:       n,
	}, nil
}

// Upload posts r as a multipart file under field and decodes the JSON reply.
func (p *Provider) Upload(ctx context.Context, path, field, filename string, r io.Reader, dst any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("read upload %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := p.do(ctx, http.MethodPost, path, nil, &buf, mw.FormDataContentType())
	if err != nil {
		return p.fail(ctx, fmt.Errorf("upload %s: %w", filename, err))
	}
	defer func() { _ = resp.Body.Close() }()
	return p.decode(ctx, path, resp, dst)
}

func (p *Provider) call(ctx context.Context, method, path string, q url.Values, body, dst any) error {
	rdr, ctype, err := encodeJSON(body)
	if err != nil {
		return p.fail(ctx, err)
	}
	resp, err := p.do(ctx, method, path, q, rdr, ctype)
	if err != nil {
		return p.fail(ctx, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer func() { _ = resp.Body.Close() }()
	return p.decode(ctx, path, resp, dst)
}

func (p *Provider) decode(ctx context.Context, path string, resp *http.Response, dst any) error {
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return p.fail(ctx, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

// do returns the response only for 2xx statuses; anything else becomes a
// *session.HTTPError.
func (p *Provider) do(ctx context.Context, method, path string, q url.Values, body io.Reader, ctype string) (*http.Response, error) {
	u := p.apiURL + "/" + strings.TrimLeft(path, "/")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, session.NewResponseError(resp, raw)
	}
	return resp, nil
}

func (p *Provider) fail(ctx context.Context, err error) error {
	res := p.gw.OnError(ctx, err)
	if res.Logout {
		p.log.Warn("data operation ended the session", "err", err)
	}
	return res.Err
}

func encodeJSON(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(buf), "application/json", nil
}

func resourcePath(resource string, id ...string) string {
	parts := []string{strings.Trim(resource, "/")}
	for _, s := range id {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
