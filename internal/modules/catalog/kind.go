package catalog

import (
	"fmt"
	"strings"
)

// Kind selects which table family a document is stored in. Templates and
// products share one shape and differ only in where they live.
type Kind string

const (
	KindTemplate Kind = "template"
	KindProduct  Kind = "product"
)

// Table returns the kind-prefixed name of a child table, e.g. "template_tags".
// An empty suffix yields the root table ("templates").
func (k Kind) Table(suffix string) string {
	if suffix == "" {
		return string(k) + "s"
	}
	return string(k) + "_" + suffix
}

// Valid reports whether k is a known document kind.
func (k Kind) Valid() bool {
	return k == KindTemplate || k == KindProduct
}

// ParseKind maps user input ("templates", "Product", ...) onto a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	if !k.Valid() {
		return "", fmt.Errorf("unknown document kind %q", s)
	}
	return k, nil
}

// Status is the lifecycle state kept in the status ledger.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusTemplate  Status = "TEMPLATE"
	StatusPublished Status = "PUBLISHED"
)

// Statuses lists every accepted ledger state.
var Statuses = []Status{StatusDraft, StatusTemplate, StatusPublished}

// Valid reports whether s belongs to the closed status enumeration.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusTemplate, StatusPublished:
		return true
	}
	return false
}

// ParseStatus normalises s and validates it against the enumeration.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}
