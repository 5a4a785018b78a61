// Package metadata models the per-category payload stored on annotation
// tasks. Each project category has one concrete payload type; completion
// rules live with the type.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Category string

const (
	CategoryNewsIntelligence Category = "news_intelligence"
	CategoryText             Category = "text"
	CategoryImage            Category = "image"
	CategoryVideo            Category = "video"
	CategoryTranscription    Category = "transcription"
	CategoryTranslation      Category = "translation"
)

var categories = []Category{
	CategoryNewsIntelligence, CategoryText, CategoryImage,
	CategoryVideo, CategoryTranscription, CategoryTranslation,
}

// ValidCategory reports whether c is a known project category.
func ValidCategory(c Category) bool {
	for _, v := range categories {
		if v == c {
			return true
		}
	}
	return false
}

var (
	ErrUnknownCategory  = errors.New("unknown project category")
	ErrInvalidPayload   = errors.New("invalid task metadata")
	ErrIncompleteReview = errors.New("task metadata is incomplete")
)

// Payload is the typed metadata of a task.
type Payload interface {
	Category() Category
	// Validate checks field values regardless of workflow state.
	Validate() error
	// ValidateForCompletion checks the category's completion precondition.
	ValidateForCompletion() error
}

// Article states recognized on news uploads.
const (
	ArticleStatePending     = "pending"
	ArticleStateCompleted   = "completed"
	ArticleStateNotRelevant = "not_relevant"
)

// ValidArticleState reports whether s is a recognized article state.
func ValidArticleState(s string) bool {
	switch s {
	case ArticleStatePending, ArticleStateCompleted, ArticleStateNotRelevant:
		return true
	}
	return false
}

// EntityTag links a news article to a DataNest entity.
type EntityTag struct {
	EntityType string `json:"entity_type"`
	EntityID   uint64 `json:"entity_id"`
	Name       string `json:"name,omitempty"`
}

// News is the payload of news_intelligence tasks: the uploaded article plus
// the tagging produced by the annotator.
type News struct {
	Headline     string `json:"headline"`
	URL          string `json:"url"`
	SourceName   string `json:"source_name"`
	PublishDate  string `json:"publish_date"`
	RawText      string `json:"raw_text"`
	CleanedText  string `json:"cleaned_text,omitempty"`
	Language     string `json:"language,omitempty"`
	ArticleState string `json:"article_state"`

	ActionTypes []string    `json:"action_types"`
	EntityTags  []EntityTag `json:"entity_tags"`
	Notes       string      `json:"notes,omitempty"`
}

func (n *News) Category() Category { return CategoryNewsIntelligence }

func (n *News) Validate() error {
	if n.ArticleState != "" && !ValidArticleState(n.ArticleState) {
		return fmt.Errorf("%w: article_state %q", ErrInvalidPayload, n.ArticleState)
	}
	for _, tag := range n.EntityTags {
		if strings.TrimSpace(tag.EntityType) == "" || tag.EntityID == 0 {
			return fmt.Errorf("%w: entity tags need entity_type and entity_id", ErrInvalidPayload)
		}
	}
	for _, a := range n.ActionTypes {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("%w: empty action type", ErrInvalidPayload)
		}
	}
	return nil
}

func (n *News) ValidateForCompletion() error {
	if err := n.Validate(); err != nil {
		return err
	}
	if len(n.ActionTypes) == 0 {
		return fmt.Errorf("%w: at least one action_type tag is required", ErrIncompleteReview)
	}
	return nil
}

// Label is one annotation mark. Span fields apply to text, Box to images and
// Timestamp to video.
type Label struct {
	Name      string    `json:"name"`
	Start     *int      `json:"start,omitempty"`
	End       *int      `json:"end,omitempty"`
	Box       []float64 `json:"box,omitempty"`
	Timestamp *float64  `json:"timestamp,omitempty"`
}

// Media is the payload of text, image, video, transcription and translation
// tasks.
type Media struct {
	Kind           Category `json:"-"`
	SourceURL      string   `json:"source_url,omitempty"`
	Content        string   `json:"content,omitempty"`
	Labels         []Label  `json:"labels"`
	Transcript     string   `json:"transcript,omitempty"`
	Translation    string   `json:"translation,omitempty"`
	TargetLanguage string   `json:"target_language,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

func (m *Media) Category() Category { return m.Kind }

func (m *Media) Validate() error {
	for _, l := range m.Labels {
		if strings.TrimSpace(l.Name) == "" {
			return fmt.Errorf("%w: label name is required", ErrInvalidPayload)
		}
		if l.Start != nil && l.End != nil && *l.End < *l.Start {
			return fmt.Errorf("%w: label %q ends before it starts", ErrInvalidPayload, l.Name)
		}
		if len(l.Box) != 0 && len(l.Box) != 4 {
			return fmt.Errorf("%w: label %q box needs 4 coordinates", ErrInvalidPayload, l.Name)
		}
	}
	return nil
}

func (m *Media) ValidateForCompletion() error {
	if err := m.Validate(); err != nil {
		return err
	}
	switch m.Kind {
	case CategoryTranscription:
		if strings.TrimSpace(m.Transcript) == "" {
			return fmt.Errorf("%w: transcript is required", ErrIncompleteReview)
		}
	case CategoryTranslation:
		if strings.TrimSpace(m.Translation) == "" {
			return fmt.Errorf("%w: translation is required", ErrIncompleteReview)
		}
	default:
		if len(m.Labels) == 0 {
			return fmt.Errorf("%w: at least one label is required", ErrIncompleteReview)
		}
	}
	return nil
}

// New returns an empty payload for category c.
func New(c Category) (Payload, error) {
	switch c {
	case CategoryNewsIntelligence:
		return &News{ArticleState: ArticleStatePending}, nil
	case CategoryText, CategoryImage, CategoryVideo, CategoryTranscription, CategoryTranslation:
		return &Media{Kind: c}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
}

// Decode parses raw metadata stored for a task of category c. Empty input
// yields an empty payload.
func Decode(c Category, raw []byte) (Payload, error) {
	p, err := New(c)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return p, nil
	}
	if err := decodeStrict(raw, p); err != nil {
		return nil, err
	}
	return p, p.Validate()
}

// Merge applies a partial JSON update on top of current. Fields absent from
// update keep their current values.
func Merge(current Payload, update []byte) (Payload, error) {
	raw, err := Encode(current)
	if err != nil {
		return nil, err
	}
	merged, err := Decode(current.Category(), raw)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(update)) == 0 {
		return merged, nil
	}
	if err := decodeStrict(update, merged); err != nil {
		return nil, err
	}
	return merged, merged.Validate()
}

// Encode serializes a payload for storage.
func Encode(p Payload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}

func decodeStrict(raw []byte, into Payload) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
