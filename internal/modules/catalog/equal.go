package catalog

import (
	"encoding/json"
	"reflect"
	"slices"
	"sort"
)

// Clone returns a deep copy of a. No slice, map or pointer is shared.
func (a *Aggregate) Clone() *Aggregate {
	if a == nil {
		return nil
	}
	out := *a
	out.Tags = slices.Clone(a.Tags)

	out.Options = make([]Option, len(a.Options))
	for i, o := range a.Options {
		o.Values = make([]OptionValue, len(a.Options[i].Values))
		for j, v := range a.Options[i].Values {
			v.Colors = slices.Clone(v.Colors)
			o.Values[j] = v
		}
		out.Options[i] = o
	}

	out.Variants = make([]Variant, len(a.Variants))
	for i, v := range a.Variants {
		v.Options = slices.Clone(v.Options)
		out.Variants[i] = v
	}

	out.Images = make([]Image, len(a.Images))
	for i, img := range a.Images {
		img.VariantIDs = slices.Clone(img.VariantIDs)
		if img.Order != nil {
			order := *img.Order
			img.Order = &order
		}
		out.Images[i] = img
	}

	out.PrintAreas = make([]PrintArea, len(a.PrintAreas))
	for i, pa := range a.PrintAreas {
		pa.VariantIDs = slices.Clone(pa.VariantIDs)
		pa.Placeholders = make([]Placeholder, len(a.PrintAreas[i].Placeholders))
		for j, ph := range a.PrintAreas[i].Placeholders {
			ph.Images = slices.Clone(ph.Images)
			pa.Placeholders[j] = ph
		}
		out.PrintAreas[i] = pa
	}

	if a.External != nil {
		ext := *a.External
		out.External = &ext
	}

	out.SalesChannelProperties = make([]SalesChannelProperties, len(a.SalesChannelProperties))
	for i, p := range a.SalesChannelProperties {
		out.SalesChannelProperties[i] = SalesChannelProperties{
			BulletPoints: slices.Clone(p.BulletPoints),
			Attributes:   cloneAttributes(p.Attributes),
		}
	}

	out.Views = make([]View, len(a.Views))
	for i, v := range a.Views {
		v.Files = make([]ViewFile, len(a.Views[i].Files))
		for j, f := range a.Views[i].Files {
			f.VariantIDs = slices.Clone(f.VariantIDs)
			v.Files[j] = f
		}
		out.Views[i] = v
	}
	return &out
}

// Equal compares two aggregates field by field. Tags and sales channel
// properties compare as multisets; every other collection is ordered.
// Nil and empty collections are equal and the internal id is ignored.
func Equal(a, b *Aggregate) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(canonical(a), canonical(b))
}

// canonical rewrites a clone so that reflect.DeepEqual implements Equal.
func canonical(a *Aggregate) *Aggregate {
	c := a.Clone()
	c.InternalID = ""
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	c.Tags = nilIfEmpty(c.Tags)
	sort.Strings(c.Tags)
	c.Options = nilIfEmpty(c.Options)
	for i := range c.Options {
		c.Options[i].Values = nilIfEmpty(c.Options[i].Values)
		for j := range c.Options[i].Values {
			c.Options[i].Values[j].Colors = nilIfEmpty(c.Options[i].Values[j].Colors)
		}
	}
	c.Variants = nilIfEmpty(c.Variants)
	for i := range c.Variants {
		c.Variants[i].Options = nilIfEmpty(c.Variants[i].Options)
	}
	c.Images = nilIfEmpty(c.Images)
	for i := range c.Images {
		c.Images[i].VariantIDs = nilIfEmpty(c.Images[i].VariantIDs)
	}
	c.PrintAreas = nilIfEmpty(c.PrintAreas)
	for i := range c.PrintAreas {
		pa := &c.PrintAreas[i]
		pa.VariantIDs = nilIfEmpty(pa.VariantIDs)
		pa.Placeholders = nilIfEmpty(pa.Placeholders)
		for j := range pa.Placeholders {
			pa.Placeholders[j].Images = nilIfEmpty(pa.Placeholders[j].Images)
		}
	}
	c.Views = nilIfEmpty(c.Views)
	for i := range c.Views {
		c.Views[i].Files = nilIfEmpty(c.Views[i].Files)
		for j := range c.Views[i].Files {
			c.Views[i].Files[j].VariantIDs = nilIfEmpty(c.Views[i].Files[j].VariantIDs)
		}
	}

	c.SalesChannelProperties = nilIfEmpty(c.SalesChannelProperties)
	keys := make([]string, len(c.SalesChannelProperties))
	for i := range c.SalesChannelProperties {
		p := &c.SalesChannelProperties[i]
		p.BulletPoints = nilIfEmpty(p.BulletPoints)
		if len(p.Attributes) == 0 {
			p.Attributes = nil
		}
		// encoding/json sorts map keys, so the encoding is a stable sort key.
		b, _ := json.Marshal(p)
		keys[i] = string(b)
	}
	sort.Sort(byKey{keys: keys, props: c.SalesChannelProperties})
	return c
}

type byKey struct {
	keys  []string
	props []SalesChannelProperties
}

func (s byKey) Len() int           { return len(s.keys) }
func (s byKey) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s byKey) Swap(i, j int) {
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
	s.props[i], s.props[j] = s.props[j], s.props[i]
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

func cloneAttributes(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneAttributes(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
