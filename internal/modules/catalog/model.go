package catalog

import (
	"time"
)

// Aggregate is a print-on-demand catalog document (template or product)
// together with every nested collection it owns.
type Aggregate struct {
	ExternalID      string    `json:"id"`
	InternalID      string    `json:"-"` // storage-assigned, never sent over the wire
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	BlueprintID     int64     `json:"blueprint_id"`
	PrintProviderID int64     `json:"print_provider_id"`
	UserID          int64     `json:"user_id"`
	ShopID          int64     `json:"shop_id"`
	Visible         bool      `json:"visible"`
	IsLocked        bool      `json:"is_locked"`
	Reviewed        bool      `json:"reviewed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Tags                   []string                 `json:"tags"`
	Options                []Option                 `json:"options"`
	Variants               []Variant                `json:"variants"`
	Images                 []Image                  `json:"images"`
	PrintAreas             []PrintArea              `json:"print_areas"`
	External               *External                `json:"external,omitempty"`
	SalesChannelProperties []SalesChannelProperties `json:"sales_channel_properties"`
	Views                  []View                   `json:"views"`
}

// Option describes one selectable dimension such as size or color.
type Option struct {
	Name             string        `json:"name"`
	Type             string        `json:"type"`
	Values           []OptionValue `json:"values"`
	DisplayInPreview bool          `json:"display_in_preview"`
}

// OptionValue is a single choice within an Option.
type OptionValue struct {
	ID     int64    `json:"id"`
	Title  string   `json:"title"`
	Colors []string `json:"colors,omitempty"`
}

// Variant is a purchasable combination of option values, keyed by the
// provider's variant id. Cost and Price are in minor currency units.
type Variant struct {
	ID                int64   `json:"id"`
	SKU               string  `json:"sku"`
	Cost              int64   `json:"cost"`
	Price             int64   `json:"price"`
	Title             string  `json:"title"`
	Grams             int64   `json:"grams"`
	IsEnabled         bool    `json:"is_enabled"`
	IsDefault         bool    `json:"is_default"`
	IsAvailable       bool    `json:"is_available"`
	IsExpressEligible bool    `json:"is_printify_express_eligible"`
	Quantity          int64   `json:"quantity"`
	Options           []int64 `json:"options"`
}

// Image is a rendered mockup of the document.
type Image struct {
	Src                     string  `json:"src"`
	VariantIDs              []int64 `json:"variant_ids"`
	Position                string  `json:"position"`
	IsDefault               bool    `json:"is_default"`
	IsSelectedForPublishing bool    `json:"is_selected_for_publishing"`
	Order                   *int64  `json:"order"`
}

// PrintArea groups the placeholders that apply to a set of variants.
type PrintArea struct {
	VariantIDs   []int64       `json:"variant_ids"`
	Placeholders []Placeholder `json:"placeholders"`
	Background   string        `json:"background,omitempty"`
}

// Placeholder is a named print position (front, back, ...) inside a PrintArea.
type Placeholder struct {
	Position string        `json:"position"`
	Images   []PlacedImage `json:"images"`
}

// PlacedImage positions an uploaded image inside a Placeholder.
type PlacedImage struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	Type   string  `json:"type,omitempty"`
	Height int64   `json:"height,omitempty"`
	Width  int64   `json:"width,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Scale  float64 `json:"scale"`
	Angle  float64 `json:"angle"`
}

// External links the document to a sales channel listing.
type External struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

// View is a display angle of the document with its source files.
type View struct {
	ID       int64      `json:"id"`
	Label    string     `json:"label"`
	Position string     `json:"position"`
	Files    []ViewFile `json:"files"`
}

// ViewFile is a single file rendered for a View.
type ViewFile struct {
	Src        string  `json:"src"`
	VariantIDs []int64 `json:"variant_ids"`
}

// ImageRef is what the catalog API returns after an image upload.
type ImageRef struct {
	ID         string `json:"id"`
	FileName   string `json:"file_name,omitempty"`
	Height     int64  `json:"height,omitempty"`
	Width      int64  `json:"width,omitempty"`
	Size       int64  `json:"size,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// Summary is the lightweight listing row used by dashboards.
type Summary struct {
	ExternalID  string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
