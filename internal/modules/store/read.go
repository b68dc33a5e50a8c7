package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/identity"
)

// readNested fills every collection of agg. Each result set is drained and
// closed before the next query runs on the same connection.
func (r *Repository) readNested(ctx context.Context, q identity.Querier, agg *catalog.Aggregate) error {
	readers := []func(context.Context, identity.Querier, *catalog.Aggregate) error{
		r.readTags,
		r.readOptions,
		r.readVariants,
		r.readImages,
		r.readPrintAreas,
		r.readExternal,
		r.readSalesChannelProperties,
		r.readViews,
	}
	for _, read := range readers {
		if err := read(ctx, q, agg); err != nil {
			return err
		}
	}
	return nil
}

// scanRows runs query and calls scan for every row.
func (r *Repository) scanRows(ctx context.Context, q identity.Querier, op, query string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := q.QueryContext(ctx, r.db.Dialect.Rebind(query), args...)
	if err != nil {
		return r.persistenceError(op, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return r.persistenceError(op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return r.persistenceError(op, err)
	}
	return nil
}

// decodeColumn unmarshals a JSON column. A corrupt value is logged and
// the fallback is returned in its place.
func decodeColumn[T any](logger *zap.Logger, raw, column, externalID string, fallback T) T {
	if raw == "" {
		return fallback
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		logger.Warn("unreadable json column",
			zap.String("external_id", externalID), zap.String("column", column), zap.Error(err))
		return fallback
	}
	return v
}

func (r *Repository) readTags(ctx context.Context, q identity.Querier, agg *catalog.Aggregate) error {
	agg.Tags = []string{}
	return r.scanRows(ctx, q, "read "+tagsTable,
		`SELECT tag FROM `+r.kind.Table(tagsTable)+` WHERE doc_id = ? ORDER BY ordinal`,
		func(rows *sql.Rows) error {
			var tag string
			if err := rows.Scan(&tag); err != nil {
				return err
			}
			agg.Tags = append(agg.Tags, tag)
			return nil
		}, agg.InternalID)
}

func (r *Repository) readOptions(ctx context.Context, q identity.Querier, agg *catalog.Aggregate) error {
	agg.Options = []catalog.Option{}
	return r.scanRows(ctx, q, "read "+optionsTable,
		`SELECT name, type, display_in_preview, option_values FROM `+r.kind.Table(optionsTable)+
			` WHERE doc_id = ? ORDER BY ordinal`,
		func(rows *sql.Rows) error {
			var o catalog.Option
			var values string
			if err := rows.Scan(&o.Name, &o.Type, &o.DisplayInPreview, &values); err != nil {
				return err
			}
			o.Values = decodeColumn(r.logger, values, optionsTable+".option_values", agg.ExternalID, []catalog.OptionValue{})
			agg.Options = append(agg.Options, o)
			return nil
		}, agg.InternalID)
}

func (r *Repository) readVariants(ctx context.Context, q identity.Querier, agg *catalog.Aggregate) error {
	agg.Variants = []catalog.Variant{}
	return r.scanRows(ctx, q, "read "+variantsTable,
		`SELECT variant_id, sku, cost, price, title, grams, is_enabled, is_default, is_available,
		        is_express_eligible, quantity, options
		 FROM `+r.kind.Table(variantsTable)+` WHERE doc_id = ? ORDER BY ordinal`,
		func(rows *sql.Rows) error {
			var v catalog.Variant
			var opts string
			if err := rows.Scan(&v.ID, &v.SKU, &v.Cost, &v.Price, &v.Title, &v.Grams,
				&v.IsEnabled, &v.IsDefault, &v.IsAvailable, &v.IsExpressEligible, &v.Quantity, &opts); err != nil {
				return err
			}
			v.Options = decodeColumn(r.logger, opts, variantsTable+".options", agg.ExternalID, []int64{})
			agg.Variants = append(agg.Variants, v)
			return nil
		}, agg.InternalID)
}

func (r *Repository) readImages(ctx context.Context, q identity.Querier, agg *catalog.Aggregate) error {
	agg.Images = []catalog.Image{}
	return r.scanRows(ctx, q, "read "+imagesTable,
		`SELECT src, variant_ids, position, is_default, is_selected_for_publishing, order_index
		 FROM `+r.kind.Table(imagesTable)+` WHERE doc_id = ? ORDER BY ordinal`,
		func(rows *sql.Rows) error {
			var img catalog.Image
			var ids string
			var order sql.NullInt64
			if err := rows.Scan(&img.Src, &ids, &img.Position, &img.IsDefault, &img.IsSelectedForPublishing, &order); err != nil {
				return err
			}
			img.VariantIDs = decodeColumn(r.logger, ids, imagesTable+".variant_ids", agg.ExternalID, []int64{})
			if order.Valid {
				v := order.Int64
				img.Order = &v
			}
			agg.Images = append(agg.Images, img)
			return nil
		}, agg.InternalID)
}

// readPrintAreas loads the areas first and then every placeholder of the
// document in one query, grouped onto the area row it references.
func (r *Repository) readPrintAreas(ctx context.Context, q identity.Querier, agg *catalog.Aggregate) error {
	agg.PrintAreas = []catalog.PrintArea{}
	index := map[string]int{}
	err := r.scanRows(ctx, q, "read "+printAreasTable,
		`SELECT id, variant_ids, background FROM `+r.kind.Table(printAreasTable)+
			` WHERE doc_id = ? ORDER BY ordinal`,
		func(rows *sql.Rows) error {
			var rowID, ids string
			pa := catalog.PrintArea{Placeholders: []catalog.Placeholder{}}
			if err := rows.Scan(&rowID, &ids, &pa.Background); err != nil {
				return err
			}
			pa.VariantIDs = decodeColumn(r.logger, ids, printAreasTable+".variant_ids", agg.ExternalID, []int64{})
			index[rowID] = len(agg.PrintAreas)
			agg.PrintAreas = append(agg.PrintAreas, pa)
			return nil
		}, agg.InternalID)
	if err != nil || len(agg.PrintAreas) == 0 {
		return err
	}

	return r.scanRows(ctx, q, "read "+placeholdersTable,
		`SELECT p.print_area_id, p.position, p.images
		 FROM `+r.kind.Table(placeholdersTable)+` p
		 JOIN `+r.kind.Table(printAreasTable)+` a ON a.id = p.print_area_id
		 WHERE a.doc_id = ? ORDER BY p.print_area_id, p.ordinal`,
		func(rows *sql.Rows) error {
			var areaID, images string
			var ph catalog.Placeholder
			if err := rows.Scan(&areaID, &ph.Position, &images); err != nil {
				return err
			}
			ph.Images = decodeColumn(r.logger, images, placeholdersTable+".images", agg.ExternalID, []catalog.PlacedImage{})
			i, ok := index[areaID]
			if !ok {
				return nil
			}
			agg.PrintAreas[i].Placeholders = append(agg.PrintAreas[i].Placeholders, ph)
			return nil
		}, agg.InternalID)
}

func (r *Repository) readExternal(ctx context.Context, q identity.Querier, agg *catalog.Aggregate) error {
	agg.External = nil
	return r.scanRows(ctx, q, "read "+externalTable,
		`SELECT external_ref, handle FROM `+r.kind.Table(externalTable)+` WHERE doc_id = ? ORDER BY ordinal`,
		func(rows *sql.Rows) error {
			var ext catalog.External
			if err := rows.Scan(&ext.ID, &ext.Handle); err != nil {
				return err
			}
			if agg.External == nil {
				agg.External = &ext
			}
			return nil
		}, agg.InternalID)
}

func (r *Repository) readSalesChannelProperties(ctx context.Context, q identity.Querier, agg *catalog.Aggregate) error {
	agg.SalesChannelProperties = []catalog.SalesChannelProperties{}
	return r.scanRows(ctx, q, "read "+salesChannelTable,
		`SELECT properties FROM `+r.kind.Table(salesChannelTable)+` WHERE doc_id = ? ORDER BY ordinal`,
		func(rows *sql.Rows) error {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				return err
			}
			p := decodeColumn(r.logger, raw, salesChannelTable+".properties", agg.ExternalID, catalog.SalesChannelProperties{})
			agg.SalesChannelProperties = append(agg.SalesChannelProperties, p)
			return nil
		}, agg.InternalID)
}

func (r *Repository) readViews(ctx context.Context, q identity.Querier, agg *catalog.Aggregate) error {
	agg.Views = []catalog.View{}
	index := map[string]int{}
	err := r.scanRows(ctx, q, "read "+viewsTable,
		`SELECT id, view_id, label, position FROM `+r.kind.Table(viewsTable)+
			` WHERE doc_id = ? ORDER BY ordinal`,
		func(rows *sql.Rows) error {
			var rowID string
			v := catalog.View{Files: []catalog.ViewFile{}}
			if err := rows.Scan(&rowID, &v.ID, &v.Label, &v.Position); err != nil {
				return err
			}
			index[rowID] = len(agg.Views)
			agg.Views = append(agg.Views, v)
			return nil
		}, agg.InternalID)
	if err != nil || len(agg.Views) == 0 {
		return err
	}

	return r.scanRows(ctx, q, "read "+viewFilesTable,
		`SELECT f.view_row_id, f.src, f.variant_ids
		 FROM `+r.kind.Table(viewFilesTable)+` f
		 JOIN `+r.kind.Table(viewsTable)+` v ON v.id = f.view_row_id
		 WHERE v.doc_id = ? ORDER BY f.view_row_id, f.ordinal`,
		func(rows *sql.Rows) error {
			var viewID, ids string
			var f catalog.ViewFile
			if err := rows.Scan(&viewID, &f.Src, &ids); err != nil {
				return err
			}
			f.VariantIDs = decodeColumn(r.logger, ids, viewFilesTable+".variant_ids", agg.ExternalID, []int64{})
			if i, ok := index[viewID]; ok {
				agg.Views[i].Files = append(agg.Views[i].Files, f)
			}
			return nil
		}, agg.InternalID)
}
