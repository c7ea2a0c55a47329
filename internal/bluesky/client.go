package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
)

const DefaultHost = "https://bsky.social"

// ErrUndecodable reports a 2xx response whose body could not be decoded.
// The call itself succeeded.
var ErrUndecodable = errors.New("undecodable response body")

// APIError is a non-2xx XRPC response.
type APIError struct {
	Method string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Method, e.Status, e.Body)
}

// Session is the result of createSession.
type Session = xrpc.AuthInfo

// Blob is the reference returned by uploadBlob and echoed back in records
// that attach the media.
type Blob = lexutil.LexBlob

// CreateRecordOutput is the createRecord response.
type CreateRecordOutput = comatproto.RepoCreateRecord_Output

// Client calls the three XRPC procedures the publisher needs.
type Client struct {
	host string
	http *http.Client
}

func NewClient(host string, httpClient *http.Client) *Client {
	if host == "" {
		host = DefaultHost
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		host: strings.TrimRight(host, "/"),
		http: httpClient,
	}
}

// call returns an xrpc client for a single request. Tokens are passed per
// call, so nothing is shared between requests.
func (c *Client) call(token string, headers map[string]string) *xrpc.Client {
	xc := &xrpc.Client{
		Client:  c.http,
		Host:    c.host,
		Headers: headers,
	}
	if token != "" {
		xc.Auth = &xrpc.AuthInfo{AccessJwt: token}
	}
	return xc
}

// CreateSession exchanges an identifier and app password for tokens.
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (*Session, error) {
	out, err := comatproto.ServerCreateSession(ctx, c.call("", nil), &comatproto.ServerCreateSession_Input{
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		return nil, classify("createSession", err)
	}
	if out.AccessJwt == "" {
		return nil, fmt.Errorf("createSession: response has no accessJwt")
	}
	return &Session{
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
		Handle:     out.Handle,
		Did:        out.Did,
	}, nil
}

// UploadBlob stores raw bytes and returns the blob reference.
func (c *Client) UploadBlob(ctx context.Context, token, mimeType string, data []byte) (*Blob, error) {
	xc := c.call(token, map[string]string{"Content-Type": mimeType})
	out, err := comatproto.RepoUploadBlob(ctx, xc, bytes.NewReader(data))
	if err != nil {
		return nil, classify("uploadBlob", err)
	}
	if out.Blob == nil {
		return nil, fmt.Errorf("uploadBlob: %w: no blob in response", ErrUndecodable)
	}
	return out.Blob, nil
}

// CreateRecord writes record into collection of repo.
func (c *Client) CreateRecord(ctx context.Context, token, repo, collection string, record *Post) (*CreateRecordOutput, error) {
	out, err := comatproto.RepoCreateRecord(ctx, c.call(token, nil), &comatproto.RepoCreateRecord_Input{
		Repo:       repo,
		Collection: collection,
		Record:     &lexutil.LexiconTypeDecoder{Val: record},
	})
	if err != nil {
		return nil, classify("createRecord", err)
	}
	return out, nil
}

// classify maps xrpc failures onto APIError and ErrUndecodable.
func classify(method string, err error) error {
	var xerr *xrpc.Error
	if errors.As(err, &xerr) {
		body := ""
		if xerr.Wrapped != nil {
			body = xerr.Wrapped.Error()
		}
		return &APIError{Method: method, Status: xerr.StatusCode, Body: body}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: HTTP request: %w", method, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%s: %w: %v", method, ErrUndecodable, err)
	}
	return fmt.Errorf("%s: %w", method, err)
}
