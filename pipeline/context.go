// Package pipeline runs a fixed, ordered list of stages against one shared
// Context, stopping at the first stage failure.
//
// Information Hiding:
// - Field bookkeeping and merge rules hidden behind Context methods
// - Stage logging and failure isolation hidden in Executor
// - State machine transitions hidden in Pipeline.Execute
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/richinex/seoscout/tools"
)

// ErrContextSealed is returned when a stage would mutate a Context whose
// pipeline has already terminated.
var ErrContextSealed = errors.New("context is sealed")

// Field names a Context field that stages may write.
type Field string

const (
	FieldKeywords          Field = "keywords"
	FieldSearchResults     Field = "searchResults"
	FieldRelatedQuestions  Field = "relatedQuestions"
	FieldSearchInformation Field = "searchInformation"
	FieldAuditScores       Field = "auditScores"
	FieldAuditIssues       Field = "auditIssues"
	FieldLoadingExperience Field = "loadingExperience"
	FieldAuditedURL        Field = "auditedUrl"
	FieldFindings          Field = "findings"
)

// KeywordSet is an unordered set of lower-case keywords.
// It marshals as a sorted JSON array.
type KeywordSet map[string]struct{}

// NewKeywordSet builds a set from words.
func NewKeywordSet(words ...string) KeywordSet {
	s := make(KeywordSet, len(words))
	s.Add(words...)
	return s
}

// Add inserts words into the set.
func (s KeywordSet) Add(words ...string) {
	for _, w := range words {
		s[w] = struct{}{}
	}
}

// Has reports whether word is in the set.
func (s KeywordSet) Has(word string) bool {
	_, ok := s[word]
	return ok
}

// Sorted returns the members in lexical order.
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s KeywordSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array into the set.
func (s *KeywordSet) UnmarshalJSON(data []byte) error {
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return err
	}
	*s = NewKeywordSet(words...)
	return nil
}

// Context is the single record threaded through every stage of one run.
// Stages never delete a field once written; they replace or extend it.
// Log is append-only. A Context belongs to exactly one run and is
// read-only once that run terminates.
type Context struct {
	Target            string                   `json:"target"`
	Query             string                   `json:"query,omitempty"`
	Keywords          KeywordSet               `json:"keywords"`
	SearchResults     []tools.OrganicResult    `json:"searchResults"`
	RelatedQuestions  []tools.RelatedQuestion  `json:"relatedQuestions"`
	SearchInformation *tools.SearchInformation `json:"searchInformation,omitempty"`
	AuditScores       map[string]float64       `json:"auditScores"`
	AuditIssues       []tools.Issue            `json:"auditIssues"`
	LoadingExperience *tools.LoadingExperience `json:"loadingExperience,omitempty"`
	AuditedURL        string                   `json:"auditedUrl,omitempty"`
	Findings          []string                 `json:"findings,omitempty"`
	Log               []string                 `json:"log"`

	written map[Field]bool
	sealed  bool
}

// NewContext creates an empty Context for target.
func NewContext(target string) *Context {
	return &Context{
		Target:           target,
		Keywords:         KeywordSet{},
		SearchResults:    []tools.OrganicResult{},
		RelatedQuestions: []tools.RelatedQuestion{},
		AuditScores:      map[string]float64{},
		AuditIssues:      []tools.Issue{},
		Log:              []string{},
		written:          map[Field]bool{},
	}
}

// WithQuery sets an explicit search query that overrides site:<target>.
func (c *Context) WithQuery(query string) *Context {
	c.Query = query
	return c
}

// Has reports whether a stage has written field during this run.
func (c *Context) Has(field Field) bool {
	return c.written[field]
}

// Sealed reports whether the owning run has terminated.
func (c *Context) Sealed() bool {
	return c.sealed
}

func (c *Context) seal() {
	c.sealed = true
}

func (c *Context) appendLog(line string) {
	c.Log = append(c.Log, line)
}

// Fragment is the part of a Context one stage produces. Fields lists
// which members are present; the rest are ignored by merge.
type Fragment struct {
	Keywords          []string
	SearchResults     []tools.OrganicResult
	RelatedQuestions  []tools.RelatedQuestion
	SearchInformation *tools.SearchInformation
	AuditScores       map[string]float64
	AuditIssues       []tools.Issue
	LoadingExperience *tools.LoadingExperience
	AuditedURL        string
	Findings          []string

	Fields []Field
}

// FragmentFromResult converts a fetcher result into a Fragment.
func FragmentFromResult(result tools.FetchResult) (Fragment, error) {
	switch r := result.(type) {
	case *tools.SearchResult:
		info := r.SearchInformation
		return Fragment{
			Keywords:          r.Keywords,
			SearchResults:     r.Results,
			RelatedQuestions:  r.RelatedQuestions,
			SearchInformation: &info,
			Fields:            []Field{FieldKeywords, FieldSearchResults, FieldRelatedQuestions, FieldSearchInformation},
		}, nil
	case *tools.AuditResult:
		le := r.LoadingExperience
		return Fragment{
			AuditScores:       r.Scores,
			AuditIssues:       r.Issues,
			LoadingExperience: &le,
			AuditedURL:        r.URL,
			Fields:            []Field{FieldAuditScores, FieldAuditIssues, FieldLoadingExperience, FieldAuditedURL},
		}, nil
	case nil:
		return Fragment{}, errors.New("fetcher returned no result")
	default:
		return Fragment{}, fmt.Errorf("unsupported fetch result %T", result)
	}
}

// MergeMode selects how one field of a Fragment folds into the Context.
type MergeMode int

const (
	// Overwrite replaces the field.
	Overwrite MergeMode = iota
	// Union extends the field: set-union for keywords, key-union for
	// scores, append for sequences. Scalar fields are replaced.
	Union
)

// String returns the mode name.
func (m MergeMode) String() string {
	switch m {
	case Overwrite:
		return "overwrite"
	case Union:
		return "union"
	default:
		return "unknown"
	}
}

// MergeStrategy assigns a MergeMode per field. Fields not listed are
// overwritten.
type MergeStrategy map[Field]MergeMode

// Mode returns the mode for field.
func (s MergeStrategy) Mode(field Field) MergeMode {
	if mode, ok := s[field]; ok {
		return mode
	}
	return Overwrite
}

// merge folds frag into c. It validates everything before touching c so a
// failed merge leaves c unchanged.
func (c *Context) merge(frag Fragment, strategy MergeStrategy) error {
	if c.sealed {
		return ErrContextSealed
	}

	var scores map[string]float64
	for _, field := range frag.Fields {
		switch field {
		case FieldAuditScores:
			clamped, err := clampScores(frag.AuditScores)
			if err != nil {
				return err
			}
			scores = clamped
		case FieldKeywords, FieldSearchResults, FieldRelatedQuestions, FieldSearchInformation,
			FieldAuditIssues, FieldLoadingExperience, FieldAuditedURL, FieldFindings:
		default:
			return fmt.Errorf("unknown field %q", field)
		}
	}

	if c.written == nil {
		c.written = map[Field]bool{}
	}

	for _, field := range frag.Fields {
		union := strategy.Mode(field) == Union

		switch field {
		case FieldKeywords:
			if !union || c.Keywords == nil {
				c.Keywords = KeywordSet{}
			}
			c.Keywords.Add(frag.Keywords...)

		case FieldSearchResults:
			c.SearchResults = extend(c.SearchResults, frag.SearchResults, union)

		case FieldRelatedQuestions:
			c.RelatedQuestions = extend(c.RelatedQuestions, frag.RelatedQuestions, union)

		case FieldSearchInformation:
			c.SearchInformation = frag.SearchInformation

		case FieldAuditScores:
			if !union || c.AuditScores == nil {
				c.AuditScores = make(map[string]float64, len(scores))
			}
			for key, score := range scores {
				c.AuditScores[key] = score
			}

		case FieldAuditIssues:
			c.AuditIssues = extend(c.AuditIssues, frag.AuditIssues, union)
			tools.SortIssues(c.AuditIssues)

		case FieldLoadingExperience:
			c.LoadingExperience = frag.LoadingExperience

		case FieldAuditedURL:
			c.AuditedURL = frag.AuditedURL

		case FieldFindings:
			c.Findings = extend(c.Findings, frag.Findings, union)
		}

		c.written[field] = true
	}
	return nil
}

// extend appends src to dst when union is set, otherwise returns a copy of src.
func extend[T any](dst, src []T, union bool) []T {
	if union {
		return append(dst, src...)
	}
	out := make([]T, len(src))
	copy(out, src)
	return out
}

// clampScores copies scores, pinning each value into [0,1].
func clampScores(scores map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(scores))
	for key, score := range scores {
		if math.IsNaN(score) {
			return nil, fmt.Errorf("score %q is NaN", key)
		}
		out[key] = math.Max(0, math.Min(1, score))
	}
	return out, nil
}
