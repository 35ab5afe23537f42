package apisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/mzalendo/darasa/core"
	"github.com/mzalendo/darasa/core/entity"
	"github.com/mzalendo/darasa/core/mutate"
)

// Client talks JSON over HTTP to the school REST API. Reads feed the entity
// cache; writes go through the mutation coordinator.
type Client struct {
	baseURL string
	token   string
	rest    *rest.Client
	logger  core.Logger
}

var (
	_ entity.Fetcher = (*Client)(nil)
	_ mutate.Writer  = (*Client)(nil)
)

func NewClient(conf *core.Config, logger core.Logger) *Client {
	return &Client{
		baseURL: conf.API.BaseURL,
		token:   conf.API.Token,
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: conf.API.Timeout}},
		logger:  logger,
	}
}

// irregular plurals only; everything else is typ + "s"
var endpointOverrides = map[string]string{
	"class": "classes",
}

func endpoint(typ string) string {
	if ep, ok := endpointOverrides[typ]; ok {
		return ep
	}
	return typ + "s"
}

func (c *Client) url(typ string, id int) string {
	u := c.baseURL + "/" + endpoint(typ)
	if id > 0 {
		u += "/" + strconv.Itoa(id)
	}
	return u
}

func (c *Client) headers(contentType string) map[string]string {
	h := map[string]string{
		"Accept":       "application/json",
		"X-Request-ID": uuid.New().String(),
	}
	if contentType != "" {
		h["Content-Type"] = contentType
	}
	if c.token != "" {
		h["Authorization"] = "Bearer " + c.token
	}
	return h
}

// FetchList retrieves the whole collection for typ. Failures become
// FetchErrors so the cache can keep serving stale contents.
func (c *Client) FetchList(ctx context.Context, typ string) ([]entity.Entity, error) {
	res, err := c.rest.SendWithContext(ctx, rest.Request{
		Method:  rest.Get,
		BaseURL: c.url(typ, 0),
		Headers: c.headers(""),
	})
	if err != nil {
		return nil, core.NewFetchError(typ, 0, err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, core.NewFetchError(typ, res.StatusCode, errors.Errorf("GET %s: status %d", endpoint(typ), res.StatusCode))
	}
	ents, err := entity.NormalizeList(typ, []byte(res.Body))
	if err != nil {
		return nil, core.NewFetchError(typ, res.StatusCode, err)
	}
	return ents, nil
}

func (c *Client) Create(ctx context.Context, typ string, payload interface{}) (entity.Entity, error) {
	if fp, ok := payload.(*mutate.FilePayload); ok {
		return c.createMultipart(ctx, typ, fp)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return entity.Entity{}, errors.Wrapf(err, "encoding new %s", typ)
	}
	return c.write(ctx, rest.Post, typ, 0, body, "application/json")
}

func (c *Client) Update(ctx context.Context, typ string, id int, payload interface{}) (entity.Entity, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return entity.Entity{}, errors.Wrapf(err, "encoding %s update", typ)
	}
	return c.write(ctx, rest.Put, typ, id, body, "application/json")
}

func (c *Client) Delete(ctx context.Context, typ string, id int) error {
	res, err := c.rest.SendWithContext(ctx, rest.Request{
		Method:  rest.Delete,
		BaseURL: c.url(typ, id),
		Headers: c.headers(""),
	})
	if err != nil {
		return errors.Wrapf(err, "deleting %s %d", typ, id)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return writeError(typ, res.StatusCode, res.Body)
	}
	return nil
}

func (c *Client) write(ctx context.Context, method rest.Method, typ string, id int, body []byte, contentType string) (entity.Entity, error) {
	res, err := c.rest.SendWithContext(ctx, rest.Request{
		Method:  method,
		BaseURL: c.url(typ, id),
		Headers: c.headers(contentType),
		Body:    body,
	})
	if err != nil {
		return entity.Entity{}, errors.Wrapf(err, "writing %s", typ)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return entity.Entity{}, writeError(typ, res.StatusCode, res.Body)
	}
	if res.Body == "" {
		return entity.Entity{}, nil
	}
	return entity.NormalizeOne(typ, []byte(res.Body))
}

func (c *Client) createMultipart(ctx context.Context, typ string, fp *mutate.FilePayload) (entity.Entity, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields, err := formFields(fp.Fields)
	if err != nil {
		return entity.Entity{}, errors.Wrapf(err, "encoding new %s", typ)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return entity.Entity{}, errors.Wrapf(err, "encoding new %s", typ)
		}
	}
	part, err := w.CreateFormFile(fp.File.Field, fp.File.Filename)
	if err != nil {
		return entity.Entity{}, errors.Wrapf(err, "attaching %s", fp.File.Filename)
	}
	if _, err := io.Copy(part, fp.File.Content); err != nil {
		return entity.Entity{}, errors.Wrapf(err, "attaching %s", fp.File.Filename)
	}
	if err := w.Close(); err != nil {
		return entity.Entity{}, errors.Wrapf(err, "encoding new %s", typ)
	}

	return c.write(ctx, rest.Post, typ, 0, buf.Bytes(), w.FormDataContentType())
}

// formFields flattens a payload struct into form string values.
func formFields(payload interface{}) (map[string]string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(decoded))
	for k, v := range decoded {
		if v == nil {
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out, nil
}

// writeError maps a 4xx validation body ({field: [msgs]} or {field: msg})
// onto a ValidationError; anything else stays a generic error.
func writeError(typ string, status int, body string) error {
	if status >= http.StatusInternalServerError {
		return errors.Errorf("writing %s: status %d", typ, status)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return errors.Errorf("writing %s: status %d", typ, status)
	}

	msg := fmt.Sprintf("invalid %s data", typ)
	var flds []core.FieldError
	for field, v := range decoded {
		switch field {
		case "detail", "message", "error":
			if s, ok := v.(string); ok {
				msg = s
				continue
			}
		}
		switch fv := v.(type) {
		case string:
			flds = append(flds, core.FieldError{Field: field, Error: fv})
		case []interface{}:
			for _, item := range fv {
				if s, ok := item.(string); ok {
					flds = append(flds, core.FieldError{Field: field, Error: s})
					break // first message per field
				}
			}
		}
	}
	return core.NewValidationError(errors.New(msg), flds...)
}
