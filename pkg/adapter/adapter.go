// Package adapter derives metadata-cc.json, a camelCase copy of a dataset's
// sidecar, for consumers that expect that naming. The source sidecar is
// never modified.
package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OFFIS-RIT/lodstats/pkg/metadata"
)

var (
	ErrAlreadyExists = errors.New("adapted metadata already exists")
	ErrMissingField  = errors.New("metadata field missing")
)

// rename maps a destination field to its source names, tried in order.
type rename struct {
	to   string
	from []string
}

// Statistic fields are written in camelCase by the extractor but carry
// snake_case names in older sidecars, so both are accepted.
var renames = []rename{
	{to: "id", from: []string{"dataset_id"}},
	{to: "title", from: []string{"title"}},
	{to: "description", from: []string{"description"}},
	{to: "author", from: []string{"author"}},
	{to: "tags", from: []string{"tags"}},
	{to: "downloadedURLs", from: []string{"downloaded_urls"}},
	{to: "failedURLs", from: []string{"failed_download_urls"}},
	{to: "classes", from: []string{"classes"}},
	{to: "literals", from: []string{"literals"}},
	{to: "entities", from: []string{"entities"}},
	{to: "properties", from: []string{"properties"}},
	{to: "connections", from: []string{"connections"}},
	{to: "connectedVertices", from: []string{"connectedVertices", "connected_vertices"}},
	{to: "averageLiteralsPerVertex", from: []string{"averageLiteralsPerVertex", "average_literals_per_vertex"}},
	{to: "usedFiles", from: []string{"usedFiles", "used_files"}},
	{to: "unusedFiles", from: []string{"unusedFiles", "unused_files"}},
}

// Transform projects src onto the camelCase field set. Values are copied
// verbatim except for the download list, whose entries are rewritten from
// {url, file_name} to {url, file}.
func Transform(src *metadata.Record) (*metadata.Record, error) {
	dst := metadata.NewRecord()

	for _, rn := range renames {
		raw, err := lookup(src, rn.from)
		if err != nil {
			return nil, err
		}
		if rn.to == "downloadedURLs" {
			urls, err := adaptDownloads(raw)
			if err != nil {
				return nil, err
			}
			if err := dst.Set(rn.to, urls); err != nil {
				return nil, err
			}
			continue
		}
		if err := dst.Set(rn.to, raw); err != nil {
			return nil, err
		}
	}

	return dst, nil
}

func lookup(r *metadata.Record, names []string) (json.RawMessage, error) {
	for _, name := range names {
		if raw, ok := r.Raw(name); ok {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingField, names[0])
}

type sourceDownload struct {
	URL      json.RawMessage `json:"url"`
	FileName json.RawMessage `json:"file_name"`
}

type adaptedDownload struct {
	URL  json.RawMessage `json:"url"`
	File json.RawMessage `json:"file"`
}

func adaptDownloads(raw json.RawMessage) ([]adaptedDownload, error) {
	var entries []sourceDownload
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("downloaded_urls: %w", err)
	}

	out := make([]adaptedDownload, 0, len(entries))
	for i, e := range entries {
		if e.URL == nil {
			return nil, fmt.Errorf("%w: downloaded_urls[%d].url", ErrMissingField, i)
		}
		if e.FileName == nil {
			return nil, fmt.Errorf("%w: downloaded_urls[%d].file_name", ErrMissingField, i)
		}
		out = append(out, adaptedDownload{URL: e.URL, File: e.FileName})
	}
	return out, nil
}

// Path returns the location of the adapted sidecar in dir.
func Path(dir string) string {
	return filepath.Join(dir, metadata.AdaptedFileName)
}

// Generate writes the adapted sidecar of the dataset folder dir. It refuses
// to replace an existing one.
func Generate(dir string) error {
	dst := Path(dir)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%s: %w", dst, ErrAlreadyExists)
	}

	src, err := metadata.Read(dir)
	if err != nil {
		return err
	}
	adapted, err := Transform(src)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(dir), err)
	}

	err = metadata.CreateFile(dst, adapted)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s: %w", dst, ErrAlreadyExists)
	}
	return err
}

// Remove deletes the adapted sidecar of dir. It reports whether there was
// one.
func Remove(dir string) (bool, error) {
	err := os.Remove(Path(dir))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
