package catalog

import (
	"encoding/json"
	"fmt"
)

const bulletPointsKey = "bullet_points"

// SalesChannelProperties carries channel-specific listing metadata. Only
// the bullet points are modelled; any other keys are kept verbatim in
// Attributes so they survive a round trip.
type SalesChannelProperties struct {
	BulletPoints []string
	Attributes   map[string]any
}

// MarshalJSON flattens Attributes and BulletPoints into one object.
func (p SalesChannelProperties) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Attributes)+1)
	for k, v := range p.Attributes {
		out[k] = v
	}
	if p.BulletPoints != nil {
		out[bulletPointsKey] = p.BulletPoints
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the object into BulletPoints and Attributes.
func (p *SalesChannelProperties) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = SalesChannelProperties{}
	if bp, ok := raw[bulletPointsKey]; ok {
		delete(raw, bulletPointsKey)
		list, ok := bp.([]any)
		if !ok && bp != nil {
			return fmt.Errorf("%s: expected list, got %T", bulletPointsKey, bp)
		}
		p.BulletPoints = make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("%s: expected string, got %T", bulletPointsKey, item)
			}
			p.BulletPoints = append(p.BulletPoints, s)
		}
	}
	if len(raw) > 0 {
		p.Attributes = raw
	}
	return nil
}
