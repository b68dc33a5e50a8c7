// Package transform derives products from templates. Every function
// returns a new aggregate and leaves its input untouched; a nil input
// yields a nil result.
package transform

import (
	"errors"
	"fmt"
	"slices"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
)

// MaxBulletPoints is the most bullet points a sales channel accepts.
const MaxBulletPoints = 5

// ErrTooManyBulletPoints is returned by ReplaceBulletPoints.
var ErrTooManyBulletPoints = errors.New("too many bullet points")

// MapTemplateToProduct deep-copies tpl into a new aggregate. An empty
// newExternalID keeps the template's id; the caller must assign a real one
// with ReplaceExternalID before storing the product. The internal id is
// always cleared so storage assigns a fresh one.
func MapTemplateToProduct(tpl *catalog.Aggregate, newExternalID string) *catalog.Aggregate {
	product := tpl.Clone()
	if product == nil {
		return nil
	}
	if newExternalID != "" {
		product.ExternalID = newExternalID
	}
	product.InternalID = ""
	return product
}

// ReplaceExternalID adopts the id the catalog assigned on creation.
func ReplaceExternalID(agg *catalog.Aggregate, externalID string) *catalog.Aggregate {
	if agg == nil {
		return nil
	}
	out := agg.Clone()
	out.ExternalID = externalID
	return out
}

func ReplaceTitle(agg *catalog.Aggregate, title string) *catalog.Aggregate {
	if agg == nil {
		return nil
	}
	out := agg.Clone()
	out.Title = title
	return out
}

func ReplaceDescription(agg *catalog.Aggregate, description string) *catalog.Aggregate {
	if agg == nil {
		return nil
	}
	out := agg.Clone()
	out.Description = description
	return out
}

// ReplaceTags swaps the whole tag set.
func ReplaceTags(agg *catalog.Aggregate, tags []string) *catalog.Aggregate {
	if agg == nil {
		return nil
	}
	out := agg.Clone()
	out.Tags = slices.Clone(tags)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// ReplaceAllImageIDs points every placed image of every placeholder at
// ref, fanning one uploaded design out to every print position. No other
// field of the placed images changes.
func ReplaceAllImageIDs(agg *catalog.Aggregate, ref catalog.ImageRef) *catalog.Aggregate {
	if agg == nil {
		return nil
	}
	out := agg.Clone()
	for i := range out.PrintAreas {
		for j := range out.PrintAreas[i].Placeholders {
			images := out.PrintAreas[i].Placeholders[j].Images
			for k := range images {
				images[k].ID = ref.ID
			}
		}
	}
	return out
}

// ReplaceBulletPoints writes bullets into every sales channel properties
// record, keeping each record's other attributes.
func ReplaceBulletPoints(agg *catalog.Aggregate, bullets []string) (*catalog.Aggregate, error) {
	if len(bullets) > MaxBulletPoints {
		return nil, fmt.Errorf("%w: got %d, limit %d", ErrTooManyBulletPoints, len(bullets), MaxBulletPoints)
	}
	if agg == nil {
		return nil, nil
	}
	out := agg.Clone()
	for i := range out.SalesChannelProperties {
		out.SalesChannelProperties[i].BulletPoints = slices.Clone(bullets)
	}
	return out, nil
}
