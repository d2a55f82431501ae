package quickbooks

import (
	"sort"
	"strings"
)

// Resource describes one QBO entity collection. SparseUpdate is
// dictated by the remote API per entity, not inferred: entities with
// SparseUpdate accept `"sparse": true` so omitted fields keep their
// prior values; for the others an update is a full replace and omitted
// fields are nulled by the remote service.
type Resource struct {
	// Name is the lowercase path segment, e.g. "invoice".
	Name string
	// Entity is the JSON key wrapping the entity in responses,
	// e.g. "Invoice".
	Entity string
	// SparseUpdate reports whether the entity accepts sparse updates.
	SparseUpdate bool
}

// Per the QBO API reference: Account, Invoice, Payment, Transfer and
// Vendor document sparse update support; Bill updates are full-replace.
var resourceRegistry = map[string]Resource{
	"account":  {Name: "account", Entity: "Account", SparseUpdate: true},
	"invoice":  {Name: "invoice", Entity: "Invoice", SparseUpdate: true},
	"bill":     {Name: "bill", Entity: "Bill", SparseUpdate: false},
	"payment":  {Name: "payment", Entity: "Payment", SparseUpdate: true},
	"transfer": {Name: "transfer", Entity: "Transfer", SparseUpdate: true},
	"vendor":   {Name: "vendor", Entity: "Vendor", SparseUpdate: true},
}

// LookupResource resolves a resource by name, case-insensitively.
func LookupResource(name string) (Resource, bool) {
	r, ok := resourceRegistry[strings.ToLower(name)]
	return r, ok
}

// ResourceNames lists the supported resource names, sorted.
func ResourceNames() []string {
	names := make([]string, 0, len(resourceRegistry))
	for name := range resourceRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
