package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	xcerrors "github.com/jacoelho/xmlcatalog/errors"
	"github.com/jacoelho/xmlcatalog/internal/uri"
)

func fetchFile(target string, withBody bool) (*Resource, error) {
	p, err := uri.FilePath(target)
	if err != nil {
		return nil, xcerrors.Wrap(xcerrors.ErrMalformedIdentifier, target, "file uri", err)
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(target, err)
		}
		return nil, xcerrors.Wrap(xcerrors.ErrFetchFailed, target, "open file", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, xcerrors.Wrap(xcerrors.ErrFetchFailed, target, "stat file", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, xcerrors.New(xcerrors.ErrFetchFailed, target, "is a directory")
	}
	res := localResource(target, p)
	res.LastModified = info.ModTime()
	if withBody {
		res.Body = f
	} else {
		_ = f.Close()
	}
	return res, nil
}

func fetchData(target string, withBody bool) (*Resource, error) {
	mediaType, data, err := uri.ParseData(target)
	if err != nil {
		return nil, xcerrors.Wrap(xcerrors.ErrMalformedIdentifier, target, "data uri", err)
	}
	res := &Resource{URI: target, Status: http.StatusOK, Headers: http.Header{}}
	res.ContentType, res.Encoding = splitContentType(mediaType)
	res.Headers.Set("Content-Type", mediaType)
	if withBody {
		res.Body = io.NopCloser(bytes.NewReader(data))
	}
	return res, nil
}

func (f *Fetcher) fetchClasspath(target string, withBody bool) (*Resource, error) {
	if f.classpath == nil {
		return nil, notFound(target, errors.New("no classpath filesystem configured"))
	}
	name := strings.TrimLeft(uri.NormalizeClasspath(target)[len("classpath:"):], "/")
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if !fs.ValidPath(name) {
		return nil, xcerrors.Newf(xcerrors.ErrMalformedIdentifier, target, "invalid classpath resource %q", name)
	}
	file, err := f.classpath.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(target, err)
		}
		return nil, xcerrors.Wrap(xcerrors.ErrFetchFailed, target, "open classpath resource", err)
	}
	res := localResource(target, name)
	if info, err := file.Stat(); err == nil {
		res.LastModified = info.ModTime()
	}
	if withBody {
		res.Body = file
	} else {
		_ = file.Close()
	}
	return res, nil
}

// fetchJar reads a member of a zip archive named jar:<archive-uri>!/<member>.
// The archive itself is fetched through the fetcher, so any supported scheme
// may hold it.
func (f *Fetcher) fetchJar(ctx context.Context, target string, withBody bool) (*Resource, error) {
	archiveURI, member, ok := strings.Cut(target[len("jar:"):], "!")
	if !ok {
		return nil, xcerrors.New(xcerrors.ErrMalformedIdentifier, target, "jar uri has no member separator")
	}
	member = strings.TrimPrefix(member, "/")

	archive, err := f.Get(ctx, archiveURI)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(archive.Body)
	_ = archive.Close()
	if err != nil {
		return nil, xcerrors.Wrap(xcerrors.ErrFetchFailed, archiveURI, "read archive", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, xcerrors.Wrap(xcerrors.ErrFetchFailed, archiveURI, "open archive", err)
	}
	file, err := zr.Open(member)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(target, err)
		}
		return nil, xcerrors.Wrap(xcerrors.ErrFetchFailed, target, "open archive member", err)
	}
	res := localResource(target, member)
	if info, err := file.Stat(); err == nil {
		res.LastModified = info.ModTime()
	}
	if withBody {
		res.Body = file
	} else {
		_ = file.Close()
	}
	return res, nil
}

func localResource(target, name string) *Resource {
	res := &Resource{URI: target, Status: http.StatusOK, Headers: http.Header{}}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		res.ContentType, res.Encoding = splitContentType(ct)
		res.Headers.Set("Content-Type", ct)
	}
	return res
}

// String implements fmt.Stringer for log output.
func (r *Resource) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%d %s)", r.URI, r.Status, r.ContentType)
}
