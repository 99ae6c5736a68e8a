package fetch

import (
	"context"
	"net/http"

	xcerrors "github.com/jacoelho/xmlcatalog/errors"
)

func (f *Fetcher) fetchHTTP(ctx context.Context, target string, withBody bool) (*Resource, error) {
	method := http.MethodGet
	if !withBody {
		method = http.MethodHead
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, xcerrors.Wrap(xcerrors.ErrMalformedIdentifier, target, "create request", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, xcerrors.Wrap(xcerrors.ErrFetchFailed, target, "http request", err)
	}

	res := &Resource{
		URI:     target,
		Status:  resp.StatusCode,
		Headers: resp.Header,
		ETag:    resp.Header.Get("ETag"),
	}
	res.ContentType, res.Encoding = splitContentType(resp.Header.Get("Content-Type"))
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			res.LastModified = t
		}
	}
	if d := resp.Header.Get("Date"); d != "" {
		if t, err := http.ParseTime(d); err == nil {
			res.Date = t
		}
	}

	switch {
	case redirectTarget(res) != "":
		_ = resp.Body.Close()
		return res, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_ = resp.Body.Close()
		return nil, notFound(target, nil)
	case resp.StatusCode >= http.StatusBadRequest:
		_ = resp.Body.Close()
		return nil, xcerrors.Newf(xcerrors.ErrFetchFailed, target, "http status %d", resp.StatusCode)
	}
	if withBody {
		res.Body = resp.Body
	} else {
		_ = resp.Body.Close()
	}
	return res, nil
}
