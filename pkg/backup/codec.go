package backup

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/models"
)

// Header is the fixed column order of a full backup.
var Header = []string{
	"Rec_Id",
	"Rec_Title",
	"Rec_RecommendedBy",
	"Rec_Note",
	"Rec_AddedAt",
	"Rec_Likes",
	"Rec_SeriesDescription",
	"Rec_IsStaffPick",
	"Item_Id",
	"Item_Title",
	"Item_Authors",
	"Item_ThumbnailUrl",
	"Item_GoogleVolumeId",
	"Item_Description",
	"Item_PageCount",
	"Item_Narrator",
	"Item_ListeningLength",
	"Item_Categories",
	"Item_Publisher",
	"Item_PublishedDate",
	"Item_PurchaseDate",
	"Item_ReleaseDate",
	"Item_AverageRating",
	"Item_RatingCount",
	"Item_SeriesName",
	"Item_SeriesSequence",
	"Item_ProductId",
	"Item_Asin",
	"Item_BookUrl",
	"Item_SeriesUrl",
	"Item_Abridged",
	"Item_Language",
	"Item_Copyright",
	"Item_SeriesOrder",
	"Comments",
}

const timeLayout = time.RFC3339Nano

// Record is one row of a full backup. Item is nil for a recommendation that
// has no items.
type Record struct {
	Recommendation *models.Recommendation
	Item           *models.RecommendationItem
	Comments       string
}

func encodeRecord(rec *models.Recommendation, item *models.RecommendationItem, comments string) []string {
	row := []string{
		strconv.Itoa(rec.ID),
		rec.Title,
		rec.RecommendedBy,
		rec.Note,
		rec.AddedAt.UTC().Format(timeLayout),
		strconv.Itoa(rec.Likes),
		rec.SeriesDescription,
		strconv.FormatBool(rec.IsStaffPick),
	}
	if item == nil {
		row = append(row, make([]string, len(Header)-len(row)-1)...)
		return append(row, comments)
	}
	return append(row,
		strconv.Itoa(item.ID),
		item.Title,
		item.Authors,
		item.ThumbnailURL,
		item.GoogleVolumeID,
		item.Description,
		formatOptionalInt(item.PageCount),
		item.Narrator,
		item.ListeningLength,
		item.Categories,
		item.Publisher,
		item.PublishedDate,
		item.PurchaseDate,
		item.ReleaseDate,
		item.AverageRating,
		item.RatingCount,
		item.SeriesName,
		item.SeriesSequence,
		item.ProductID,
		item.ASIN,
		item.BookURL,
		item.SeriesURL,
		item.Abridged,
		item.Language,
		item.Copyright,
		formatOptionalInt(item.SeriesOrder),
		comments,
	)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// ReadRecords parses a full backup. Columns are matched by header name, so
// missing columns read as empty and extra columns are ignored. Rows that
// can't be parsed or decoded are logged and skipped; it returns how many
// were skipped. Only an unreadable header is fatal.
func ReadRecords(ctx context.Context, r io.Reader) ([]*Record, int, error) {
	log := logger.FromContext(ctx)

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []*Record{}, 0, nil
		}
		return nil, 0, errors.WithStack(err)
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	records := []*Record{}
	skipped := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			log.Warn("skipping unreadable backup row", logger.Data{"line": parseErr.StartLine, "error": parseErr.Err.Error()})
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}

		rec, err := decodeRecord(index, row)
		if err != nil {
			line, _ := cr.FieldPos(0)
			log.Warn("skipping malformed backup row", logger.Data{"line": line, "error": err.Error()})
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

type rowReader struct {
	index map[string]int
	row   []string
	err   error
}

func (rr *rowReader) str(column string) string {
	i, ok := rr.index[column]
	if !ok || i >= len(rr.row) {
		return ""
	}
	return rr.row[i]
}

func (rr *rowReader) optionalInt(column string) *int {
	s := strings.TrimSpace(rr.str(column))
	if s == "" || rr.err != nil {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		rr.err = errors.Errorf("%s: %q is not a number", column, s)
		return nil
	}
	return &n
}

func decodeRecord(index map[string]int, row []string) (*Record, error) {
	rr := &rowReader{index: index, row: row}

	recID := rr.optionalInt("Rec_Id")
	if recID == nil && rr.err == nil {
		return nil, errors.New("Rec_Id is required")
	}
	rec := &models.Recommendation{
		Title:             rr.str("Rec_Title"),
		RecommendedBy:     rr.str("Rec_RecommendedBy"),
		Note:              rr.str("Rec_Note"),
		SeriesDescription: rr.str("Rec_SeriesDescription"),
	}
	if recID != nil {
		rec.ID = *recID
	}
	if likes := rr.optionalInt("Rec_Likes"); likes != nil {
		rec.Likes = *likes
	}
	if s := strings.TrimSpace(rr.str("Rec_AddedAt")); s != "" {
		t, err := time.Parse(timeLayout, s)
		if err != nil {
			return nil, errors.Errorf("Rec_AddedAt: %q is not a timestamp", s)
		}
		rec.AddedAt = t.UTC()
	}
	if s := strings.TrimSpace(rr.str("Rec_IsStaffPick")); s != "" {
		pick, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errors.Errorf("Rec_IsStaffPick: %q is not a boolean", s)
		}
		rec.IsStaffPick = pick
	}

	var item *models.RecommendationItem
	if itemID := rr.optionalInt("Item_Id"); itemID != nil {
		item = &models.RecommendationItem{
			ID:               *itemID,
			RecommendationID: rec.ID,
			Title:            rr.str("Item_Title"),
			Authors:          rr.str("Item_Authors"),
			ThumbnailURL:     rr.str("Item_ThumbnailUrl"),
			GoogleVolumeID:   rr.str("Item_GoogleVolumeId"),
			Description:      rr.str("Item_Description"),
			PageCount:        rr.optionalInt("Item_PageCount"),
			Narrator:         rr.str("Item_Narrator"),
			ListeningLength:  rr.str("Item_ListeningLength"),
			Categories:       rr.str("Item_Categories"),
			Publisher:        rr.str("Item_Publisher"),
			PublishedDate:    rr.str("Item_PublishedDate"),
			PurchaseDate:     rr.str("Item_PurchaseDate"),
			ReleaseDate:      rr.str("Item_ReleaseDate"),
			AverageRating:    rr.str("Item_AverageRating"),
			RatingCount:      rr.str("Item_RatingCount"),
			SeriesName:       rr.str("Item_SeriesName"),
			SeriesSequence:   rr.str("Item_SeriesSequence"),
			ProductID:        rr.str("Item_ProductId"),
			ASIN:             rr.str("Item_Asin"),
			BookURL:          rr.str("Item_BookUrl"),
			SeriesURL:        rr.str("Item_SeriesUrl"),
			Abridged:         rr.str("Item_Abridged"),
			Language:         rr.str("Item_Language"),
			Copyright:        rr.str("Item_Copyright"),
			SeriesOrder:      rr.optionalInt("Item_SeriesOrder"),
		}
	}
	if rr.err != nil {
		return nil, rr.err
	}

	return &Record{Recommendation: rec, Item: item, Comments: rr.str("Comments")}, nil
}

// ParsedComment is one entry of a Comments cell.
type ParsedComment struct {
	Author    string
	Text      string
	CreatedAt time.Time
}

var (
	fieldEscaper   = strings.NewReplacer(`\`, `\\`, `:`, `\:`, `|`, `\|`)
	fieldUnescaper = strings.NewReplacer(`\\`, `\`, `\:`, `:`, `\|`, `|`)
)

// EscapeField escapes the separators used by the Comments cell.
func EscapeField(s string) string {
	return fieldEscaper.Replace(s)
}

// UnescapeField reverses EscapeField.
func UnescapeField(s string) string {
	return fieldUnescaper.Replace(s)
}

// EncodeComments renders comments as author:text:timestamp entries joined
// by "|".
func EncodeComments(comments []*models.Comment) string {
	entries := make([]string, 0, len(comments))
	for _, c := range comments {
		entries = append(entries, EscapeField(c.Author)+":"+EscapeField(c.Text)+":"+c.CreatedAt.UTC().Format(timeLayout))
	}
	return strings.Join(entries, "|")
}

// DecodeComments parses a Comments cell. Entries with fewer than three
// fields or an unreadable timestamp are dropped.
func DecodeComments(cell string) []ParsedComment {
	parsed := []ParsedComment{}
	for _, entry := range splitUnescaped(cell, '|', -1) {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		// The timestamp is never escaped and carries its own colons.
		fields := splitUnescaped(entry, ':', 3)
		if len(fields) < 3 {
			continue
		}
		createdAt, err := time.Parse(timeLayout, strings.TrimSpace(fields[2]))
		if err != nil {
			continue
		}
		parsed = append(parsed, ParsedComment{
			Author:    UnescapeField(fields[0]),
			Text:      UnescapeField(fields[1]),
			CreatedAt: createdAt.UTC(),
		})
	}
	return parsed
}

// splitUnescaped splits s on sep wherever sep isn't preceded by an escaping
// backslash. Escapes are kept in the parts. n limits the number of parts
// the way strings.SplitN does.
func splitUnescaped(s string, sep byte, n int) []string {
	parts := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if n > 0 && len(parts) == n-1 {
			break
		}
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
