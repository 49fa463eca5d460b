// Package export writes accumulated rows to CSV files, SQLite databases and NATS subjects.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// CSV column names.
const (
	ColumnID          = "Post_ID"
	ColumnURL         = "Post_URL"
	ColumnTitle       = "Post_Title"
	ColumnSubtext     = "Post_Subtext"
	ColumnNumComments = "Num_Comments_On_Post"
	ColumnComments    = "Comments"
)

// CSVOptions controls WriteCSV.
type CSVOptions struct {
	// IncludeURL adds the Post_URL column after Post_ID.
	IncludeURL bool
}

// Header returns the header row written for opts.
func (opts CSVOptions) Header() []string {
	if opts.IncludeURL {
		return []string{ColumnID, ColumnURL, ColumnTitle, ColumnSubtext, ColumnNumComments, ColumnComments}
	}
	return []string{ColumnID, ColumnTitle, ColumnSubtext, ColumnNumComments, ColumnComments}
}

// WriteCSV writes a header and one record per row. Comments are stored as a JSON
// array in a single field.
func WriteCSV(w io.Writer, rows []types.Post, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(opts.Header()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for i := range rows {
		row := &rows[i]
		comments := row.Comments
		if comments == nil {
			comments = []string{}
		}
		encoded, err := json.Marshal(comments)
		if err != nil {
			return fmt.Errorf("failed to encode comments of post %s: %w", row.ID, err)
		}

		record := []string{row.ID}
		if opts.IncludeURL {
			record = append(record, row.URL)
		}
		record = append(record, row.Title, row.SelfText, strconv.Itoa(row.NumComments), string(encoded))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write post %s: %w", row.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV, with or without the URL column.
func ReadCSV(r io.Reader) ([]types.Post, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, &pkgerrs.ParseError{Operation: "read csv", Message: "missing header", Err: err}
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{ColumnID, ColumnTitle, ColumnSubtext, ColumnNumComments, ColumnComments} {
		if _, ok := cols[required]; !ok {
			return nil, &pkgerrs.ParseError{Operation: "read csv", Message: "missing column " + required}
		}
	}
	urlCol, hasURL := cols[ColumnURL]

	var rows []types.Post
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &pkgerrs.ParseError{Operation: "read csv", Err: err}
		}
		if len(record) != len(header) {
			return nil, &pkgerrs.ParseError{Operation: "read csv", Message: fmt.Sprintf("line %d has %d fields, want %d", line, len(record), len(header))}
		}

		n, err := strconv.Atoi(record[cols[ColumnNumComments]])
		if err != nil {
			return nil, &pkgerrs.ParseError{Operation: "read csv", Message: fmt.Sprintf("line %d: bad comment count", line), Err: err}
		}
		var comments []string
		if err := json.Unmarshal([]byte(record[cols[ColumnComments]]), &comments); err != nil {
			return nil, &pkgerrs.ParseError{Operation: "read csv", Message: fmt.Sprintf("line %d: bad comments field", line), Err: err}
		}

		post := types.Post{
			ID:          record[cols[ColumnID]],
			Title:       record[cols[ColumnTitle]],
			SelfText:    record[cols[ColumnSubtext]],
			NumComments: n,
			Comments:    comments,
		}
		if hasURL {
			post.URL = record[urlCol]
		}
		rows = append(rows, post)
	}
	return rows, nil
}
