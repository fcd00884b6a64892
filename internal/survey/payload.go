package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qri-io/jsonschema"
)

// ErrMalformed is the sentinel wrapped by every payload validation failure.
var ErrMalformed = errors.New("malformed payload")

// ValidationError lists what was wrong with a payload. It unwraps to
// ErrMalformed.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrMalformed.Error()
	}
	return ErrMalformed.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrMalformed }

func malformed(format string, args ...any) error {
	return &ValidationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// payloadSchemaJSON is the wire contract of the form relay: a submission
// time and a mapping of question label to one or more answer labels.
const payloadSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["submitted_at", "responses"],
  "properties": {
    "submitted_at": {"type": "string", "minLength": 1},
    "responses": {
      "type": "object",
      "additionalProperties": {
        "type": ["array", "string"],
        "items": {"type": "string"}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func payloadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal([]byte(payloadSchemaJSON), rs); err != nil {
			schemaErr = fmt.Errorf("compile payload schema: %w", err)
			return
		}
		schema = rs
	})
	return schema, schemaErr
}

// AnswerList is a question's selected answers. The wire form may be a
// single string or an array of strings.
type AnswerList []string

// UnmarshalJSON accepts either a string or an array of strings.
func (a *AnswerList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*a = AnswerList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*a = many
	return nil
}

// Payload is a decoded form submission.
type Payload struct {
	SubmittedAt time.Time
	Responses   map[string]AnswerList
}

type wirePayload struct {
	SubmittedAt string                `json:"submitted_at"`
	Responses   map[string]AnswerList `json:"responses"`
}

// ValidatePayload checks raw against the payload schema. Every failure
// unwraps to ErrMalformed.
func ValidatePayload(ctx context.Context, raw []byte) error {
	rs, err := payloadSchema()
	if err != nil {
		return err
	}
	keyErrs, err := rs.ValidateBytes(ctx, raw)
	if err != nil {
		return malformed("invalid json: %v", err)
	}
	if len(keyErrs) == 0 {
		return nil
	}
	ve := &ValidationError{}
	for _, ke := range keyErrs {
		path := ke.PropertyPath
		if path == "" {
			path = "/"
		}
		ve.Problems = append(ve.Problems, path+": "+ke.Message)
	}
	return ve
}

// ParsePayload validates raw and decodes it. Every failure unwraps to
// ErrMalformed.
func ParsePayload(ctx context.Context, raw []byte) (Payload, error) {
	if err := ValidatePayload(ctx, raw); err != nil {
		return Payload{}, err
	}

	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return Payload{}, malformed("decode: %v", err)
	}
	at, err := ParseTimestamp(w.SubmittedAt)
	if err != nil {
		return Payload{}, malformed("submitted_at: %v", err)
	}
	if w.Responses == nil {
		w.Responses = map[string]AnswerList{}
	}
	return Payload{SubmittedAt: at, Responses: w.Responses}, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp and returns it in UTC. A
// timestamp without an offset is taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Submission is a payload mapped onto the catalog.
type Submission struct {
	SubmittedAt time.Time
	// Token is the trimmed token answer; empty when absent.
	Token string
	// TokenValid is false when the token answer is absent, empty or multi-valued.
	TokenValid bool
	Answers    Answers
	// Raw keeps every answered label as submitted, for storage.
	Raw map[string][]string
}

// Extract maps a payload onto the catalog. Labels outside the catalog are
// kept in Raw but not scored. A catalog question with more than one selected
// answer is malformed: every question is single choice. So is a question (or
// the token) reached through two different labels, such as its code and its
// full text.
func (c *Catalog) Extract(p Payload) (Submission, error) {
	sub := Submission{
		SubmittedAt: p.SubmittedAt,
		Answers:     make(Answers, len(c.Questions)),
		Raw:         make(map[string][]string, len(p.Responses)),
	}
	var problems []string
	seen := make(map[string]string, len(p.Responses))
	claim := func(key, label string) bool {
		if prev, dup := seen[key]; dup {
			a, b := prev, label
			if b < a {
				a, b = b, a
			}
			problems = append(problems, fmt.Sprintf("%s: answered under both %q and %q", key, a, b))
			return false
		}
		seen[key] = label
		return true
	}
	for label, answers := range p.Responses {
		sub.Raw[label] = append([]string(nil), answers...)

		if c.IsTokenLabel(label) {
			if !claim(c.TokenLabel, label) {
				continue
			}
			vals := nonEmpty(answers)
			if len(vals) > 0 {
				sub.Token = vals[0]
			}
			sub.TokenValid = len(vals) == 1 && validToken(vals[0])
			continue
		}

		q, ok := c.Lookup(label)
		if !ok || !claim(q.Code, label) {
			continue
		}
		vals := nonEmpty(answers)
		switch len(vals) {
		case 0:
		case 1:
			sub.Answers[q.Code] = vals[0]
		default:
			problems = append(problems, fmt.Sprintf("%s: single choice only, got %d answers", q.Code, len(vals)))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return Submission{}, &ValidationError{Problems: problems}
	}
	return sub, nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func validToken(s string) bool {
	if len(s) > 128 {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n/?#")
}
