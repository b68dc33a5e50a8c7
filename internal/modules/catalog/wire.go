package catalog

// CreatePayload is the request body for creating a document remotely.
type CreatePayload struct {
	Title                  string                  `json:"title"`
	Description            string                  `json:"description"`
	BlueprintID            int64                   `json:"blueprint_id"`
	PrintProviderID        int64                   `json:"print_provider_id"`
	Tags                   []string                `json:"tags"`
	Variants               []CreateVariant         `json:"variants"`
	PrintAreas             []CreatePrintArea       `json:"print_areas"`
	External               []External              `json:"external,omitempty"`
	SalesChannelProperties *SalesChannelProperties `json:"sales_channel_properties,omitempty"`
}

// CreateVariant is the subset of a Variant the create endpoint accepts.
type CreateVariant struct {
	ID        int64  `json:"id"`
	Price     int64  `json:"price"`
	SKU       string `json:"sku,omitempty"`
	IsEnabled bool   `json:"is_enabled"`
	IsDefault bool   `json:"is_default"`
}

// CreatePrintArea is a print area without its storage-only background.
type CreatePrintArea struct {
	VariantIDs   []int64       `json:"variant_ids"`
	Placeholders []Placeholder `json:"placeholders"`
}

// DocumentPage is one page of the remote shop's document listing.
type DocumentPage struct {
	CurrentPage int              `json:"current_page"`
	LastPage    int              `json:"last_page"`
	Total       int              `json:"total"`
	Data        []map[string]any `json:"data"`
}

// PublishFlags selects which parts of a document a publish pushes to the
// sales channel.
type PublishFlags struct {
	Title            bool `json:"title"`
	Description      bool `json:"description"`
	Tags             bool `json:"tags"`
	Variants         bool `json:"variants"`
	Images           bool `json:"images"`
	KeyFeatures      bool `json:"keyFeatures"`
	ShippingTemplate bool `json:"shipping_template"`
}

// PublishAll sets every publish flag.
func PublishAll() PublishFlags {
	return PublishFlags{
		Title:            true,
		Description:      true,
		Tags:             true,
		Variants:         true,
		Images:           true,
		KeyFeatures:      true,
		ShippingTemplate: true,
	}
}

// CreatePayload builds the remote creation body. Only the first sales
// channel properties record is sent. A variant whose price is zero is
// treated as unpriced and skipped: Price carries no presence bit, so an
// absent price and an explicit 0 are the same value, and the API refuses
// free variants either way.
func (a *Aggregate) CreatePayload() CreatePayload {
	p := CreatePayload{
		Title:           a.Title,
		Description:     a.Description,
		BlueprintID:     a.BlueprintID,
		PrintProviderID: a.PrintProviderID,
		Tags:            append([]string{}, a.Tags...),
		Variants:        make([]CreateVariant, 0, len(a.Variants)),
		PrintAreas:      make([]CreatePrintArea, 0, len(a.PrintAreas)),
	}
	for _, v := range a.Variants {
		if v.Price == 0 { // unpriced
			continue
		}
		p.Variants = append(p.Variants, CreateVariant{
			ID:        v.ID,
			Price:     v.Price,
			SKU:       v.SKU,
			IsEnabled: v.IsEnabled,
			IsDefault: v.IsDefault,
		})
	}
	clone := a.Clone()
	for _, pa := range clone.PrintAreas {
		p.PrintAreas = append(p.PrintAreas, CreatePrintArea{
			VariantIDs:   pa.VariantIDs,
			Placeholders: pa.Placeholders,
		})
	}
	if clone.External != nil {
		p.External = []External{*clone.External}
	}
	if len(clone.SalesChannelProperties) > 0 {
		p.SalesChannelProperties = &clone.SalesChannelProperties[0]
	}
	return p
}
