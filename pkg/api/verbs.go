package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
)

// Decoded pairs a typed value with the exact JSON it was decoded from.
type Decoded[T any] struct {
	Value T
	Raw   json.RawMessage
}

// Get fetches a single item.
func Get[T any](ctx context.Context, c *Client, res Resource, params Params, id string) (*Decoded[T], error) {
	path, err := res.ItemPath(params, id)
	if err != nil {
		return nil, err
	}
	return send[T](ctx, c, res, &Request{Method: http.MethodGet, Path: path})
}

// Fetch reads a singleton resource that lives at the collection path (e.g. /accounts).
func Fetch[T any](ctx context.Context, c *Client, res Resource, params Params) (*Decoded[T], error) {
	path, err := res.CollectionPath(params)
	if err != nil {
		return nil, err
	}
	return send[T](ctx, c, res, &Request{Method: http.MethodGet, Path: path})
}

// Create POSTs payload to the collection.
func Create[T any](ctx context.Context, c *Client, res Resource, params Params, payload any) (*Decoded[T], error) {
	path, err := res.CollectionPath(params)
	if err != nil {
		return nil, err
	}
	return send[T](ctx, c, res, &Request{Method: http.MethodPost, Path: path, Body: payload})
}

// Update PATCHes payload onto an item.
func Update[T any](ctx context.Context, c *Client, res Resource, params Params, id string, payload any) (*Decoded[T], error) {
	path, err := res.ItemPath(params, id)
	if err != nil {
		return nil, err
	}
	return send[T](ctx, c, res, &Request{Method: http.MethodPatch, Path: path, Body: payload})
}

// Delete removes an item. The response body, if any, is ignored.
func Delete(ctx context.Context, c *Client, res Resource, params Params, id string) error {
	path, err := res.ItemPath(params, id)
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
	return err
}

// Action calls an item sub-path such as /publish. A nil payload sends no body.
func Action[T any](ctx context.Context, c *Client, res Resource, params Params, id, action, method string, payload any) (*Decoded[T], error) {
	path, err := res.ItemPath(params, id)
	if err != nil {
		return nil, err
	}
	if action != "" {
		path += "/" + strings.Trim(action, "/")
	}
	return send[T](ctx, c, res, &Request{Method: method, Path: path, Body: payload})
}

// File is the binary part of an upload.
type File struct {
	// Field is the multipart form field name.
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

// Upload sends file as multipart/form-data to the item's upload sub-path.
// The body is built in memory so a retry can resend it.
func Upload[T any](ctx context.Context, c *Client, res Resource, params Params, id string, file File) (*Decoded[T], error) {
	path, err := res.ItemPath(params, id)
	if err != nil {
		return nil, err
	}
	if res.Upload != "" {
		path += "/" + strings.Trim(res.Upload, "/")
	}

	body, contentType, err := multipartBody(file)
	if err != nil {
		return nil, err
	}
	return send[T](ctx, c, res, &Request{Method: http.MethodPatch, Path: path, RawBody: body, ContentType: contentType})
}

func multipartBody(file File) ([]byte, string, error) {
	if file.Content == nil {
		return nil, "", fmt.Errorf("upload has no content")
	}
	field := file.Field
	if field == "" {
		field = "file"
	}
	name := filepath.Base(file.Name)
	if name == "" || name == "." {
		name = field
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func send[T any](ctx context.Context, c *Client, res Resource, req *Request) (*Decoded[T], error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decode[T](c, res, resp.Status, resp.Body)
}

// decode checks body against the resource schema, then unmarshals it.
// Any mismatch is an Unknown error carrying the raw body.
func decode[T any](c *Client, res Resource, status int, body []byte) (*Decoded[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &Error{Kind: Unknown, Status: status, Message: fmt.Sprintf("empty %s response", res.Name), Body: body}
	}

	var generic any
	if err := json.Unmarshal(trimmed, &generic); err != nil {
		return nil, &Error{Kind: Unknown, Status: status, Message: "response is not valid JSON", Body: body, Cause: err}
	}

	if c.schemas != nil && res.Schema != "" {
		if err := c.schemas.ValidateResponse(res.Schema, generic); err != nil {
			return nil, &Error{
				Kind:    Unknown,
				Status:  status,
				Message: fmt.Sprintf("response does not match the %s schema", res.Schema),
				Body:    body,
				Cause:   err,
			}
		}
	}

	out := &Decoded[T]{Raw: json.RawMessage(trimmed)}
	if err := json.Unmarshal(trimmed, &out.Value); err != nil {
		return nil, &Error{Kind: Unknown, Status: status, Message: fmt.Sprintf("cannot decode %s response", res.Name), Body: body, Cause: err}
	}
	return out, nil
}
