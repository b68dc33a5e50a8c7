package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order; the catalog API emits the second.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type aggregateFields Aggregate

type variantFields Variant

type wireVariant struct {
	variantFields
	Quantity *int64 `json:"quantity"`
}

// wireDocument overrides the fields whose wire representation differs
// from the typed model. Shallower fields win over the embedded ones.
type wireDocument struct {
	aggregateFields
	ID        any           `json:"id"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
	Variants  []wireVariant `json:"variants"`
}

// Parse converts the untyped wire form of a document into an Aggregate.
// Absent optional fields take their defaults: false for flags, 1 for
// variant quantity, empty for collections. A missing id is fatal.
func Parse(doc map[string]any) (*Aggregate, error) {
	id, ok := doc["id"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedDocument)
	}

	fields := make(map[string]any, len(doc))
	for k, v := range doc {
		fields[k] = v
	}
	if _, isObject := fields["external"].(map[string]any); !isObject {
		delete(fields, "external")
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	var wire wireDocument
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", ErrMalformedDocument, id, err)
	}

	agg := Aggregate(wire.aggregateFields)
	agg.ExternalID = id
	agg.InternalID = ""
	if agg.CreatedAt, err = ParseTimestamp(wire.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: created_at: %v", ErrMalformedDocument, err)
	}
	if agg.UpdatedAt, err = ParseTimestamp(wire.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: updated_at: %v", ErrMalformedDocument, err)
	}

	agg.Variants = make([]Variant, 0, len(wire.Variants))
	for _, wv := range wire.Variants {
		v := Variant(wv.variantFields)
		v.Quantity = 1
		if wv.Quantity != nil {
			v.Quantity = *wv.Quantity
		}
		agg.Variants = append(agg.Variants, v)
	}
	agg.ensureCollections()
	return &agg, nil
}

// ParseJSON decodes a raw wire document and parses it.
func ParseJSON(data []byte) (*Aggregate, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return Parse(doc)
}

// ParseTimestamp accepts the timestamp formats seen on the wire and in
// storage. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// storageLayout is fixed width so stored timestamps sort lexically in
// time order.
const storageLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTimestamp renders t for storage; the zero time becomes "".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storageLayout)
}

func (a *Aggregate) ensureCollections() {
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Options == nil {
		a.Options = []Option{}
	}
	if a.Variants == nil {
		a.Variants = []Variant{}
	}
	if a.Images == nil {
		a.Images = []Image{}
	}
	if a.PrintAreas == nil {
		a.PrintAreas = []PrintArea{}
	}
	if a.SalesChannelProperties == nil {
		a.SalesChannelProperties = []SalesChannelProperties{}
	}
	if a.Views == nil {
		a.Views = []View{}
	}
}
