package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
)

// Child table suffixes. Grandchild tables hang off a parent row id rather
// than the document's internal id.
const (
	tagsTable         = "tags"
	optionsTable      = "options"
	variantsTable     = "variants"
	imagesTable       = "images"
	printAreasTable   = "print_areas"
	placeholdersTable = "placeholders"
	externalTable     = "external"
	salesChannelTable = "sales_channel_properties"
	viewsTable        = "views"
	viewFilesTable    = "view_files"
	statusTable       = "status"
)

// schemaStatements returns the DDL for one kind's table family. The same
// statements run on Postgres and SQLite; timestamps are stored as RFC 3339
// text and JSON-valued columns as text.
func schemaStatements(kind catalog.Kind) []string {
	root := kind.Table("")
	t := kind.Table
	child := func(name, cols string) string {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL DEFAULT 0,
	%s
)`, t(name), root, cols)
	}

	statuses := make([]string, len(catalog.Statuses))
	for i, s := range catalog.Statuses {
		statuses[i] = "'" + string(s) + "'"
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	external_id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	blueprint_id BIGINT NOT NULL DEFAULT 0,
	print_provider_id BIGINT NOT NULL DEFAULT 0,
	user_id BIGINT NOT NULL DEFAULT 0,
	shop_id BIGINT NOT NULL DEFAULT 0,
	visible BOOLEAN NOT NULL DEFAULT FALSE,
	is_locked BOOLEAN NOT NULL DEFAULT FALSE,
	reviewed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
)`, root),
		child(tagsTable, `tag TEXT NOT NULL`),
		child(optionsTable, `name TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	display_in_preview BOOLEAN NOT NULL DEFAULT FALSE,
	option_values TEXT NOT NULL DEFAULT '[]'`),
		child(variantsTable, `variant_id BIGINT NOT NULL,
	sku TEXT NOT NULL DEFAULT '',
	cost BIGINT NOT NULL DEFAULT 0,
	price BIGINT NOT NULL DEFAULT 0,
	title TEXT NOT NULL DEFAULT '',
	grams BIGINT NOT NULL DEFAULT 0,
	is_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	is_available BOOLEAN NOT NULL DEFAULT FALSE,
	is_express_eligible BOOLEAN NOT NULL DEFAULT FALSE,
	quantity BIGINT NOT NULL DEFAULT 1,
	options TEXT NOT NULL DEFAULT '[]'`),
		child(imagesTable, `src TEXT NOT NULL DEFAULT '',
	variant_ids TEXT NOT NULL DEFAULT '[]',
	position TEXT NOT NULL DEFAULT '',
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	is_selected_for_publishing BOOLEAN NOT NULL DEFAULT FALSE,
	order_index BIGINT`),
		child(printAreasTable, `variant_ids TEXT NOT NULL DEFAULT '[]',
	background TEXT NOT NULL DEFAULT ''`),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	print_area_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL DEFAULT 0,
	position TEXT NOT NULL DEFAULT '',
	images TEXT NOT NULL DEFAULT '[]'
)`, t(placeholdersTable), t(printAreasTable)),
		child(externalTable, `external_ref TEXT NOT NULL DEFAULT '',
	handle TEXT NOT NULL DEFAULT ''`),
		child(salesChannelTable, `properties TEXT NOT NULL DEFAULT '{}'`),
		child(viewsTable, `view_id BIGINT NOT NULL DEFAULT 0,
	label TEXT NOT NULL DEFAULT '',
	position TEXT NOT NULL DEFAULT ''`),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	view_row_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL DEFAULT 0,
	src TEXT NOT NULL DEFAULT '',
	variant_ids TEXT NOT NULL DEFAULT '[]'
)`, t(viewFilesTable), t(viewsTable)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	doc_id TEXT PRIMARY KEY REFERENCES %s(id) ON DELETE CASCADE,
	status TEXT NOT NULL CHECK (status IN (%s)),
	updated_at TEXT NOT NULL DEFAULT ''
)`, t(statusTable), root, strings.Join(statuses, ", ")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_doc_idx ON %s (doc_id)`, t(variantsTable), t(variantsTable)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_doc_idx ON %s (doc_id)`, t(imagesTable), t(imagesTable)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_area_idx ON %s (print_area_id)`, t(placeholdersTable), t(placeholdersTable)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_view_idx ON %s (view_row_id)`, t(viewFilesTable), t(viewFilesTable)),
	}
}

// EnsureSchema creates the table family for kind if it does not exist.
func EnsureSchema(ctx context.Context, db Execer, kind catalog.Kind) error {
	for _, stmt := range schemaStatements(kind) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure %s schema: %w", kind, err)
		}
	}
	return nil
}

// directChildren lists the child tables keyed by doc_id, in the order they
// are cleared. Grandchildren are handled separately before their parents.
var directChildren = []string{
	tagsTable,
	optionsTable,
	variantsTable,
	imagesTable,
	printAreasTable,
	externalTable,
	salesChannelTable,
	viewsTable,
}
