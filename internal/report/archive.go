package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/timmy/jobscout/internal/logger"
	"github.com/timmy/jobscout/internal/storage"
)

// ErrReportNotFound is returned by Load when no report exists for a date.
var ErrReportNotFound = errors.New("report not found")

// Archive stores rendered reports as report_<date>.md and report_<date>.html.
type Archive struct {
	store  storage.ObjectStorage
	prefix string
}

// NewArchive creates an archive writing under prefix in store.
func NewArchive(store storage.ObjectStorage, prefix string) *Archive {
	return &Archive{store: store, prefix: strings.Trim(prefix, "/")}
}

// Keys returns the object keys of the report for runDate.
func (a *Archive) Keys(runDate string) (md, html string) {
	md = "report_" + runDate + ".md"
	html = "report_" + runDate + ".html"
	if a.prefix != "" {
		md = path.Join(a.prefix, md)
		html = path.Join(a.prefix, html)
	}
	return md, html
}

// Save writes both forms of r and returns their locations.
func (a *Archive) Save(ctx context.Context, r *Report) ([]string, error) {
	mdKey, htmlKey := a.Keys(r.Stats.RunDate)

	objects := []struct {
		key, body, contentType string
	}{
		{mdKey, r.Markdown, "text/markdown; charset=utf-8"},
		{htmlKey, r.HTML, "text/html; charset=utf-8"},
	}

	locations := make([]string, 0, len(objects))
	for _, o := range objects {
		if err := a.store.Upload(ctx, o.key, strings.NewReader(o.body), int64(len(o.body)), o.contentType); err != nil {
			return locations, fmt.Errorf("save report %s: %w", o.key, err)
		}
		locations = append(locations, a.store.GetURL(o.key))
	}

	logger.With(logger.Fields{logger.FieldSize: len(r.Markdown) + len(r.HTML)}).
		Info(ctx, "Report saved to %s", strings.Join(locations, ", "))
	return locations, nil
}

// Load reads a saved report. format is "md" or "html".
func (a *Archive) Load(ctx context.Context, runDate, format string) ([]byte, string, error) {
	mdKey, htmlKey := a.Keys(runDate)
	key, contentType := mdKey, "text/markdown; charset=utf-8"
	switch format {
	case "md", "markdown", "":
	case "html":
		key, contentType = htmlKey, "text/html; charset=utf-8"
	default:
		return nil, "", fmt.Errorf("unknown report format %q", format)
	}

	ok, err := a.store.Exists(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("check report %s: %w", key, err)
	}
	if !ok {
		return nil, "", ErrReportNotFound
	}

	rc, err := a.store.Download(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("load report %s: %w", key, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("read report %s: %w", key, err)
	}
	return body, contentType, nil
}
