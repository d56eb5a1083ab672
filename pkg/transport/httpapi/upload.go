package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/goliatone/go-userwizard/pkg/media"
	"github.com/goliatone/go-userwizard/pkg/transport"
)

// Upload sends file as multipart form data to /file-upload/upload/{image}.
// The file is streamed with an exact Content-Length and onProgress receives
// the number of file bytes written so far.
func (c *Client) Upload(ctx context.Context, file media.File, destination string, image bool, onProgress transport.ProgressFunc) (string, error) {
	const op = "upload file"
	if file.Body == nil {
		return "", &transport.Error{Op: op, Err: errors.New("file body is nil")}
	}
	defer file.Body.Close()

	head, tail, contentType, err := multipartFrame(file, destination)
	if err != nil {
		return "", &transport.Error{Op: op, Err: err}
	}

	body := io.MultiReader(
		bytes.NewReader(head),
		&progressReader{r: file.Body, total: file.Size, fn: onProgress},
		bytes.NewReader(tail),
	)
	path := "/file-upload/upload/" + strconv.FormatBool(image)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), body)
	if err != nil {
		return "", &transport.Error{Op: op, Err: err}
	}
	req.ContentLength = int64(len(head)) + file.Size + int64(len(tail))
	req.Header.Set("Content-Type", contentType)

	resp, err := c.send(op, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &transport.Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	location, err := parseLocation(raw)
	if err != nil {
		return "", &transport.Error{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return location, nil
}

// multipartFrame renders everything around the file content: the
// folderName field and the file part header, then the closing boundary.
func multipartFrame(file media.File, destination string) (head, tail []byte, contentType string, err error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("folderName", destination); err != nil {
		return nil, nil, "", err
	}

	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	h.Set("Content-Type", ct)
	if _, err := mw.CreatePart(h); err != nil {
		return nil, nil, "", err
	}
	head = bytes.Clone(buf.Bytes())

	buf.Reset()
	if err := mw.Close(); err != nil {
		return nil, nil, "", err
	}
	tail = bytes.Clone(buf.Bytes())
	return head, tail, mw.FormDataContentType(), nil
}

// parseLocation accepts a bare URL, a JSON string or an object carrying url.
func parseLocation(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", errors.New("empty upload response")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("decode upload response: %w", err)
		}
		return s, nil
	case '{':
		var payload struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return "", fmt.Errorf("decode upload response: %w", err)
		}
		if payload.URL == "" {
			return "", errors.New("upload response has no url")
		}
		return payload.URL, nil
	}
	return strings.TrimSpace(string(trimmed)), nil
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    transport.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}
