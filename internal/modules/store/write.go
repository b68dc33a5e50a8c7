package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
)

// writeNested inserts every collection of agg under internalID. Rows get
// fresh ids; grandchildren reference the id of the parent row inserted
// just before them.
func (r *Repository) writeNested(ctx context.Context, tx *sql.Tx, internalID string, agg *catalog.Aggregate) error {
	for i, tag := range agg.Tags {
		if err := r.insertChild(ctx, tx, tagsTable, internalID, i, []string{"tag"}, tag); err != nil {
			return err
		}
	}

	for i, o := range agg.Options {
		values, err := encodeJSON(o.Values, "[]")
		if err != nil {
			return r.persistenceError("encode "+optionsTable, err)
		}
		if err := r.insertChild(ctx, tx, optionsTable, internalID, i,
			[]string{"name", "type", "display_in_preview", "option_values"},
			o.Name, o.Type, o.DisplayInPreview, values); err != nil {
			return err
		}
	}

	for i, v := range agg.Variants {
		opts, err := encodeJSON(v.Options, "[]")
		if err != nil {
			return r.persistenceError("encode "+variantsTable, err)
		}
		if err := r.insertChild(ctx, tx, variantsTable, internalID, i,
			[]string{"variant_id", "sku", "cost", "price", "title", "grams",
				"is_enabled", "is_default", "is_available", "is_express_eligible", "quantity", "options"},
			v.ID, v.SKU, v.Cost, v.Price, v.Title, v.Grams,
			v.IsEnabled, v.IsDefault, v.IsAvailable, v.IsExpressEligible, v.Quantity, opts); err != nil {
			return err
		}
	}

	for i, img := range agg.Images {
		ids, err := encodeJSON(img.VariantIDs, "[]")
		if err != nil {
			return r.persistenceError("encode "+imagesTable, err)
		}
		var order sql.NullInt64
		if img.Order != nil {
			order = sql.NullInt64{Int64: *img.Order, Valid: true}
		}
		if err := r.insertChild(ctx, tx, imagesTable, internalID, i,
			[]string{"src", "variant_ids", "position", "is_default", "is_selected_for_publishing", "order_index"},
			img.Src, ids, img.Position, img.IsDefault, img.IsSelectedForPublishing, order); err != nil {
			return err
		}
	}

	for i, pa := range agg.PrintAreas {
		ids, err := encodeJSON(pa.VariantIDs, "[]")
		if err != nil {
			return r.persistenceError("encode "+printAreasTable, err)
		}
		areaID, err := r.newRowID()
		if err != nil {
			return r.persistenceError("insert "+printAreasTable, err)
		}
		if err := r.insertRow(ctx, tx, printAreasTable,
			[]string{"id", "doc_id", "ordinal", "variant_ids", "background"},
			areaID, internalID, i, ids, pa.Background); err != nil {
			return err
		}
		for j, ph := range pa.Placeholders {
			images, err := encodeJSON(ph.Images, "[]")
			if err != nil {
				return r.persistenceError("encode "+placeholdersTable, err)
			}
			rowID, err := r.newRowID()
			if err != nil {
				return r.persistenceError("insert "+placeholdersTable, err)
			}
			if err := r.insertRow(ctx, tx, placeholdersTable,
				[]string{"id", "print_area_id", "ordinal", "position", "images"},
				rowID, areaID, j, ph.Position, images); err != nil {
				return err
			}
		}
	}

	if agg.External != nil {
		if err := r.insertChild(ctx, tx, externalTable, internalID, 0,
			[]string{"external_ref", "handle"}, agg.External.ID, agg.External.Handle); err != nil {
			return err
		}
	}

	for i, p := range agg.SalesChannelProperties {
		props, err := encodeJSON(p, "{}")
		if err != nil {
			return r.persistenceError("encode "+salesChannelTable, err)
		}
		if err := r.insertChild(ctx, tx, salesChannelTable, internalID, i, []string{"properties"}, props); err != nil {
			return err
		}
	}

	for i, v := range agg.Views {
		viewID, err := r.newRowID()
		if err != nil {
			return r.persistenceError("insert "+viewsTable, err)
		}
		if err := r.insertRow(ctx, tx, viewsTable,
			[]string{"id", "doc_id", "ordinal", "view_id", "label", "position"},
			viewID, internalID, i, v.ID, v.Label, v.Position); err != nil {
			return err
		}
		for j, f := range v.Files {
			ids, err := encodeJSON(f.VariantIDs, "[]")
			if err != nil {
				return r.persistenceError("encode "+viewFilesTable, err)
			}
			rowID, err := r.newRowID()
			if err != nil {
				return r.persistenceError("insert "+viewFilesTable, err)
			}
			if err := r.insertRow(ctx, tx, viewFilesTable,
				[]string{"id", "view_row_id", "ordinal", "src", "variant_ids"},
				rowID, viewID, j, f.Src, ids); err != nil {
				return err
			}
		}
	}
	return nil
}

// insertChild inserts a row keyed by the document's internal id with a
// freshly generated row id.
func (r *Repository) insertChild(ctx context.Context, tx *sql.Tx, table, internalID string, ordinal int, cols []string, vals ...any) error {
	rowID, err := r.newRowID()
	if err != nil {
		return r.persistenceError("insert "+table, err)
	}
	return r.insertRow(ctx, tx, table,
		append([]string{"id", "doc_id", "ordinal"}, cols...),
		append([]any{rowID, internalID, ordinal}, vals...)...)
}

func (r *Repository) insertRow(ctx context.Context, tx *sql.Tx, table string, cols []string, vals ...any) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		r.kind.Table(table), strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	if _, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(query), vals...); err != nil {
		return r.persistenceError("insert "+table, err)
	}
	return nil
}

// encodeJSON marshals v, storing empty instead of JSON null for nil
// collections.
func encodeJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}
