// Package csvimport parses news article uploads used to bulk-create
// annotation tasks.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yukikurage/annonest-api/internal/metadata"
)

var RequiredColumns = []string{"headline", "url", "source_name", "publish_date", "raw_text"}

var OptionalColumns = []string{"cleaned_text", "language", "article_state"}

var (
	ErrEmptyUpload    = errors.New("upload is empty")
	ErrMissingColumns = errors.New("upload is missing required columns")
	ErrNoValidRows    = errors.New("upload contains no valid rows")
)

// Article is one well-formed upload row.
type Article struct {
	Line         int
	Headline     string
	URL          string
	SourceName   string
	PublishDate  string
	RawText      string
	CleanedText  string
	Language     string
	ArticleState string
}

// Metadata converts the row into a news task payload.
func (a Article) Metadata() *metadata.News {
	return &metadata.News{
		Headline:     a.Headline,
		URL:          a.URL,
		SourceName:   a.SourceName,
		PublishDate:  a.PublishDate,
		RawText:      a.RawText,
		CleanedText:  a.CleanedText,
		Language:     a.Language,
		ArticleState: a.ArticleState,
	}
}

// Result holds the parsed rows and the lines that were dropped.
type Result struct {
	Articles     []Article
	SkippedLines []int
}

// Skipped returns the number of dropped rows.
func (r *Result) Skipped() int {
	return len(r.SkippedLines)
}

// ParseArticles reads an article upload. The header must name every required
// column; data rows whose field count differs from the header, that leave a
// required field empty or that carry an unknown article_state are skipped.
func ParseArticles(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyUpload
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable header: %v", ErrMissingColumns, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		index[name] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	result := &Result{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.SkippedLines = append(result.SkippedLines, parseErr.StartLine)
				continue
			}
			return nil, fmt.Errorf("read upload: %w", err)
		}
		line, _ := reader.FieldPos(0)

		article, ok := toArticle(record, header, index)
		if !ok {
			result.SkippedLines = append(result.SkippedLines, line)
			continue
		}
		article.Line = line
		result.Articles = append(result.Articles, article)
	}

	if len(result.Articles) == 0 {
		return result, ErrNoValidRows
	}
	return result, nil
}

func toArticle(record, header []string, index map[string]int) (Article, bool) {
	if len(record) != len(header) {
		return Article{}, false
	}

	field := func(name string) string {
		i, ok := index[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	for _, col := range RequiredColumns {
		if field(col) == "" {
			return Article{}, false
		}
	}

	state := strings.ToLower(field("article_state"))
	if state == "" {
		state = metadata.ArticleStatePending
	}
	if !metadata.ValidArticleState(state) {
		return Article{}, false
	}

	return Article{
		Headline:     field("headline"),
		URL:          field("url"),
		SourceName:   field("source_name"),
		PublishDate:  field("publish_date"),
		RawText:      field("raw_text"),
		CleanedText:  field("cleaned_text"),
		Language:     field("language"),
		ArticleState: state,
	}, true
}
