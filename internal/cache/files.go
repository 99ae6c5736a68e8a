package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// hashName returns the hex SHA-256 digest of s.
func hashName(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// writeFileAtomic writes path through a uniquely named temporary file in the
// same directory and renames it into place.
func writeFileAtomic(path string, write func(*os.File) error) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()
	if err = write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

var contentTypeExtensions = map[string]string{
	"application/xml":                        ".xml",
	"text/xml":                               ".xml",
	"application/xml-dtd":                    ".dtd",
	"application/xml-external-parsed-entity": ".ent",
	"text/xml-external-parsed-entity":        ".ent",
	"application/xslt+xml":                   ".xsl",
	"application/xsd+xml":                    ".xsd",
	"application/relax-ng-compact-syntax":    ".rnc",
	"application/rdf+xml":                    ".rdf",
	"application/xhtml+xml":                  ".xhtml",
	"text/html":                              ".html",
	"text/plain":                             ".txt",
	"text/css":                               ".css",
	"application/json":                       ".json",
	"application/zip":                        ".zip",
}

var knownSuffixes = []string{
	".dtd", ".ent", ".mod", ".xsd", ".xml", ".rng", ".rnc", ".sch",
	".xsl", ".xslt", ".rdf", ".xhtml", ".html", ".txt", ".css", ".json", ".zip",
}

const defaultExtension = ".bin"

// extension picks a data file extension from the content type, then from
// the path of the resource URI.
func extension(contentType, resourceURI string) string {
	if ext, ok := contentTypeExtensions[strings.ToLower(contentType)]; ok {
		return ext
	}
	p := resourceURI
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(path.Ext(p))
	for _, known := range knownSuffixes {
		if ext == known {
			return ext
		}
	}
	return defaultExtension
}
