package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/PaesslerAG/jsonpath"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Session is the authenticated user session used by a Client.
type Session struct {
	Token  string
	UserID string
}

// NewSession returns the session of a bearer token. The user id is read from
// the token subject without verifying the signature: the backend does that.
func NewSession(token string) (Session, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Session{}, fmt.Errorf("invalid session token: %w", err)
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("invalid session token: no subject")
	}
	return Session{Token: token, UserID: claims.Subject}, nil
}

// IsZero reports whether there is no session.
func (s Session) IsZero() bool { return s.Token == "" }

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger of the client.
func WithLogger(l *logrus.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// Client talks to the HTTP API of the backend:
//
//	GET    /api/{collection}?field=op.value&order=field.asc&limit=n
//	GET    /api/{collection}/{id}
//	POST   /api/{collection}[?on_conflict=field]
//	PATCH  /api/{collection}/{id}
//	DELETE /api/{collection}/{id}
//	DELETE /api/{collection}?field=eq.value
type Client struct {
	base    *url.URL
	http    *http.Client
	session Session
	log     *logrus.Logger
}

// NewClient returns a client of the backend at baseURL. session may be zero,
// in which case Create fails with ErrAuthRequired.
func NewClient(baseURL string, session Session, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: want scheme://host", baseURL)
	}
	c := &Client{base: u, http: http.DefaultClient, session: session}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logrus.New()
		c.log.SetOutput(io.Discard)
	}
	return c, nil
}

// Session returns the session of the client.
func (c *Client) Session() Session { return c.session }

// SignIn exchanges credentials for a session, creating the account first
// when register is set. The client uses the new session afterwards.
func (c *Client) SignIn(ctx context.Context, email, password string, register bool) (Session, error) {
	u := c.base.JoinPath("auth", "token")
	if register {
		u = c.base.JoinPath("auth", "register")
	}
	var answer struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, u, body, &answer); err != nil {
		return Session{}, err
	}
	s, err := NewSession(answer.Token)
	if err != nil {
		return Session{}, err
	}
	c.session = s
	return s, nil
}

// Collection returns the collection with that name.
func (c *Client) Collection(name string) Collection {
	return &collection{c: c, name: name}
}

// Collections returns every known collection, by name.
func (c *Client) Collections() map[string]Collection {
	all := make(map[string]Collection, len(Schemas))
	for name := range Schemas {
		all[name] = c.Collection(name)
	}
	return all
}

// do sends a request and decodes the JSON answer into out when not nil.
func (c *Client) do(ctx context.Context, method string, path []string, query url.Values, body, out any) error {
	u := c.base.JoinPath(append([]string{"api"}, path...)...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return c.send(ctx, method, u, body, out)
}

func (c *Client) send(ctx context.Context, method string, u *url.URL, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cannot encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !c.session.IsZero() {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrOffline, err)
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOffline, err)
	}
	c.log.WithFields(logrus.Fields{
		"method": method,
		"path":   u.Path,
		"status": resp.StatusCode,
	}).Debug("remote call")

	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, content)
	}
	if out == nil || len(content) == 0 {
		return nil
	}
	if err := json.Unmarshal(content, out); err != nil {
		return fmt.Errorf("cannot decode %s %s answer: %w", method, u.Path, err)
	}
	return nil
}

// decodeError turns an error answer into ErrAuthRequired, ErrNotFound, a
// *SchemaError or a *StatusError.
func decodeError(status int, body []byte) error {
	var obj any
	_ = json.Unmarshal(body, &obj)
	code := jsonString(obj, "$.error.code")
	message := jsonString(obj, "$.error.message")

	switch {
	case status == http.StatusUnauthorized || code == CodeAuthRequired:
		return fmt.Errorf("%w: %s", ErrAuthRequired, message)
	case status == http.StatusNotFound || code == CodeNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case code == CodeMissingField || code == CodeUnknownColumn:
		return &SchemaError{
			Collection: jsonString(obj, "$.error.collection"),
			Field:      jsonString(obj, "$.error.field"),
			Code:       code,
		}
	}
	if message == "" && obj == nil {
		message = string(bytes.TrimSpace(body))
	}
	return &StatusError{StatusCode: status, Code: code, Message: message}
}

// jsonString returns the string at path, "" when absent.
func jsonString(obj any, path string) string {
	if obj == nil {
		return ""
	}
	v, err := jsonpath.Get(path, obj)
	if err != nil {
		return ""
	}
	// jsonpath may wrap a single answer in a list.
	if list, ok := v.([]any); ok && len(list) > 0 {
		v = list[0]
	}
	s, _ := v.(string)
	return s
}

type collection struct {
	c    *Client
	name string
}

func (col *collection) Name() string { return col.name }

func (col *collection) List(ctx context.Context, sort string, limit int) ([]Record, error) {
	return col.query(ctx, &Query{Order: sort}, limit)
}

func (col *collection) Select(ctx context.Context, opts SelectOptions) ([]Record, error) {
	return col.query(ctx, opts.Query(), opts.Limit)
}

func (col *collection) query(ctx context.Context, q *Query, limit int) ([]Record, error) {
	v := url.Values{}
	q.Encode(v, limit)
	var out []Record
	if err := col.c.do(ctx, http.MethodGet, []string{col.name}, v, nil, &out); err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", col.name, err)
	}
	return out, nil
}

func (col *collection) Get(ctx context.Context, id string) (Record, error) {
	var out Record
	if err := col.c.do(ctx, http.MethodGet, []string{col.name, id}, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("cannot get %s %q: %w", col.name, id, err)
	}
	return out, nil
}

func (col *collection) Create(ctx context.Context, data Record) (Record, error) {
	if col.c.session.IsZero() {
		return nil, fmt.Errorf("cannot create %s: %w", col.name, ErrAuthRequired)
	}
	var out Record
	if err := col.c.do(ctx, http.MethodPost, []string{col.name}, nil, data, &out); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", col.name, err)
	}
	return out, nil
}

func (col *collection) Update(ctx context.Context, id string, data Record) (Record, error) {
	var out Record
	if err := col.c.do(ctx, http.MethodPatch, []string{col.name, id}, nil, data, &out); err != nil {
		return nil, fmt.Errorf("cannot update %s %q: %w", col.name, id, err)
	}
	return out, nil
}

func (col *collection) Upsert(ctx context.Context, data Record, conflictKey string) (Record, error) {
	if col.c.session.IsZero() {
		return nil, fmt.Errorf("cannot upsert %s: %w", col.name, ErrAuthRequired)
	}
	if conflictKey == "" {
		conflictKey = FieldID
	}
	v := url.Values{"on_conflict": {conflictKey}}
	var out Record
	if err := col.c.do(ctx, http.MethodPost, []string{col.name}, v, data, &out); err != nil {
		return nil, fmt.Errorf("cannot upsert %s: %w", col.name, err)
	}
	return out, nil
}

// deleted is the answer of a delete.
type deleted struct {
	Success bool `json:"success"`
}

func (col *collection) Delete(ctx context.Context, id string) error {
	var out deleted
	if err := col.c.do(ctx, http.MethodDelete, []string{col.name, id}, nil, nil, &out); err != nil {
		return fmt.Errorf("cannot delete %s %q: %w", col.name, id, err)
	}
	if !out.Success {
		return fmt.Errorf("cannot delete %s %q: not acknowledged", col.name, id)
	}
	return nil
}

func (col *collection) DeleteBy(ctx context.Context, field string, value any) error {
	v := url.Values{}
	(&Query{}).Eq(field, value).Encode(v, 0)
	var out deleted
	if err := col.c.do(ctx, http.MethodDelete, []string{col.name}, v, nil, &out); err != nil {
		return fmt.Errorf("cannot delete %s by %s: %w", col.name, field, err)
	}
	if !out.Success {
		return fmt.Errorf("cannot delete %s by %s: not acknowledged", col.name, field)
	}
	return nil
}
