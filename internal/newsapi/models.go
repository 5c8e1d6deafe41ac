package newsapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Source identifies the publisher of an article. ID is empty for
// publishers the API does not index as a source.
type Source struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

func (s *Source) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID   *string `json:"id"`
		Name *string `json:"name"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Name == nil {
		return fmt.Errorf("%w: source missing name", ErrDecode)
	}
	s.Name = *aux.Name
	s.ID = ""
	if aux.ID != nil {
		s.ID = *aux.ID
	}
	return nil
}

// Article is a single search hit. Optional fields are empty strings when the
// API sends null or omits them; URL and PublishedAt are always present on the
// wire, URL possibly as an empty string.
type Article struct {
	Source      Source `json:"source"`
	Author      string `json:"author,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	ImageURL    string `json:"urlToImage,omitempty"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content,omitempty"`
}

func (a *Article) UnmarshalJSON(data []byte) error {
	var aux struct {
		Source      *Source `json:"source"`
		Author      *string `json:"author"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		URL         *string `json:"url"`
		ImageURL    *string `json:"urlToImage"`
		PublishedAt *string `json:"publishedAt"`
		Content     *string `json:"content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.Source == nil:
		return fmt.Errorf("%w: article missing source", ErrDecode)
	case aux.URL == nil:
		return fmt.Errorf("%w: article missing url", ErrDecode)
	case aux.PublishedAt == nil:
		return fmt.Errorf("%w: article missing publishedAt", ErrDecode)
	}

	*a = Article{
		Source:      *aux.Source,
		Author:      deref(aux.Author),
		Title:       deref(aux.Title),
		Description: deref(aux.Description),
		URL:         *aux.URL,
		ImageURL:    deref(aux.ImageURL),
		PublishedAt: *aux.PublishedAt,
		Content:     deref(aux.Content),
	}
	return nil
}

// PublishedTime parses PublishedAt. The zero time is returned when the API
// sent something that is not RFC 3339.
func (a Article) PublishedTime() time.Time {
	t, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Status values of the "status" discriminator.
const (
	StatusOK     = "ok"
	StatusFailed = "error"
)

// SearchResult is the decoded body of an /everything call: either *Success
// or *ErrorResponse.
type SearchResult interface {
	Status() string
	searchResult()
}

// Success carries one page of articles and the total hit count.
type Success struct {
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

func (*Success) Status() string { return StatusOK }
func (*Success) searchResult()  {}

func (s *Success) MarshalJSON() ([]byte, error) {
	articles := s.Articles
	if articles == nil {
		articles = []Article{}
	}
	return json.Marshal(struct {
		Status       string    `json:"status"`
		TotalResults int       `json:"totalResults"`
		Articles     []Article `json:"articles"`
	}{StatusOK, s.TotalResults, articles})
}

// ErrorResponse is the structured error payload the API returns, for
// example {"status":"error","code":"rateLimited","message":"..."}.
type ErrorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (*ErrorResponse) Status() string { return StatusFailed }
func (*ErrorResponse) searchResult()  {}

func (e *ErrorResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status  string `json:"status"`
		Code    string `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	}{StatusFailed, e.Code, e.Message})
}

// Describe returns the best display text: the message, else the code. It is
// empty when the payload carries neither.
func (e *ErrorResponse) Describe() string {
	switch {
	case strings.TrimSpace(e.Message) != "":
		return e.Message
	case strings.TrimSpace(e.Code) != "":
		return e.Code
	default:
		return ""
	}
}

// DecodeSearchResult decodes a response body by dispatching on its literal
// "status" field.
func DecodeSearchResult(data []byte) (SearchResult, error) {
	var head struct {
		Status *string `json:"status"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if head.Status == nil {
		return nil, fmt.Errorf("%w: missing status field", ErrDecode)
	}

	switch *head.Status {
	case StatusOK:
		var body struct {
			TotalResults *int       `json:"totalResults"`
			Articles     *[]Article `json:"articles"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, wrapDecode(err)
		}
		if body.TotalResults == nil {
			return nil, fmt.Errorf("%w: missing totalResults", ErrDecode)
		}
		if body.Articles == nil {
			return nil, fmt.Errorf("%w: missing articles", ErrDecode)
		}
		return &Success{TotalResults: *body.TotalResults, Articles: *body.Articles}, nil

	case StatusFailed:
		var body struct {
			Code    *string `json:"code"`
			Message *string `json:"message"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, wrapDecode(err)
		}
		return &ErrorResponse{Code: deref(body.Code), Message: deref(body.Message)}, nil

	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrDecode, *head.Status)
	}
}

// SourceDetails describes a publisher available to /everything.
type SourceDetails struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Language    string `json:"language"`
	Country     string `json:"country"`
}

// SourcesResponse is the body of /top-headlines/sources.
type SourcesResponse struct {
	Status  string          `json:"status"`
	Sources []SourceDetails `json:"sources"`
}
