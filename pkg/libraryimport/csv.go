package libraryimport

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type Format string

const (
	FormatLibrary Format = "library"
	FormatBackup  Format = "backup"
)

// Row is one book of a personal library export.
type Row struct {
	Title          string
	Author         string
	NarratedBy     string
	PurchaseDate   string
	Duration       string
	ReleaseDate    string
	AveRating      string
	Genre          string
	SeriesName     string
	SeriesSequence string
	ProductID      string
	ASIN           string
	BookURL        string
	Summary        string
	Description    string
	RatingCount    string
	Publisher      string
	Copyright      string
	SeriesURL      string
	Abridged       string
	Language       string
}

// columns maps normalized header names to the Row field they fill.
var columns = map[string]func(r *Row) *string{
	"title":          func(r *Row) *string { return &r.Title },
	"author":         func(r *Row) *string { return &r.Author },
	"narratedby":     func(r *Row) *string { return &r.NarratedBy },
	"purchasedate":   func(r *Row) *string { return &r.PurchaseDate },
	"duration":       func(r *Row) *string { return &r.Duration },
	"releasedate":    func(r *Row) *string { return &r.ReleaseDate },
	"averating":      func(r *Row) *string { return &r.AveRating },
	"genre":          func(r *Row) *string { return &r.Genre },
	"seriesname":     func(r *Row) *string { return &r.SeriesName },
	"seriessequence": func(r *Row) *string { return &r.SeriesSequence },
	"productid":      func(r *Row) *string { return &r.ProductID },
	"asin":           func(r *Row) *string { return &r.ASIN },
	"bookurl":        func(r *Row) *string { return &r.BookURL },
	"summary":        func(r *Row) *string { return &r.Summary },
	"description":    func(r *Row) *string { return &r.Description },
	"ratingcount":    func(r *Row) *string { return &r.RatingCount },
	"publisher":      func(r *Row) *string { return &r.Publisher },
	"copyright":      func(r *Row) *string { return &r.Copyright },
	"seriesurl":      func(r *Row) *string { return &r.SeriesURL },
	"abridged":       func(r *Row) *string { return &r.Abridged },
	"language":       func(r *Row) *string { return &r.Language },
}

// NormalizeHeader lowercases a column name and drops dots and spaces, so
// "Ave. Rating" and "averating" match.
func NormalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, ".", "")
	return strings.ReplaceAll(name, " ", "")
}

// DetectFormat tells a full backup (which has a Rec_Id column) from a
// personal library export.
func DetectFormat(data []byte) (Format, error) {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return FormatLibrary, nil
		}
		return "", errors.WithStack(err)
	}
	for _, name := range header {
		if NormalizeHeader(name) == "rec_id" {
			return FormatBackup, nil
		}
	}
	return FormatLibrary, nil
}

// ReadRows parses a personal library export. Unknown columns are ignored
// and missing ones read as empty. Rows the CSV reader can't parse are
// logged and skipped.
func ReadRows(ctx context.Context, r io.Reader) ([]*Row, error) {
	log := logger.FromContext(ctx)

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []*Row{}, nil
		}
		return nil, errors.WithStack(err)
	}
	fields := make([]func(r *Row) *string, len(header))
	for i, name := range header {
		fields[i] = columns[NormalizeHeader(name)]
	}

	rows := []*Row{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			log.Warn("skipping unreadable import row", logger.Data{"line": parseErr.StartLine, "error": parseErr.Err.Error()})
			continue
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}

		row := &Row{}
		empty := true
		for i, value := range record {
			if i >= len(fields) || fields[i] == nil {
				continue
			}
			value = strings.TrimSpace(value)
			if value != "" {
				empty = false
			}
			*fields[i](row) = value
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
