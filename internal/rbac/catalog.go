package rbac

import "strings"

// Capability is a (module, action) permission pair, e.g. (customers, create).
// The catalog is static configuration; custom roles pick subsets of it.
type Capability struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

// Key returns the stored form, "module.action".
func (c Capability) Key() string {
	return c.Module + "." + c.Action
}

// ParseKey splits a stored capability key.
func ParseKey(key string) (Capability, bool) {
	module, action, ok := strings.Cut(key, ".")
	if !ok || module == "" || action == "" {
		return Capability{}, false
	}
	return Capability{Module: module, Action: action}, true
}

const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Catalog is the fixed set of grantable capabilities. There is no
// inheritance; a role needs an explicit grant for each pair.
var Catalog = []Capability{
	{Module: "customers", Action: ActionRead},
	{Module: "customers", Action: ActionCreate},
	{Module: "customers", Action: ActionUpdate},
	{Module: "customers", Action: ActionDelete},
	{Module: "invoices", Action: ActionRead},
	{Module: "invoices", Action: ActionCreate},
	{Module: "invoices", Action: ActionUpdate},
	{Module: "invoices", Action: ActionDelete},
	{Module: "leads", Action: ActionRead},
	{Module: "leads", Action: ActionCreate},
	{Module: "leads", Action: ActionUpdate},
	{Module: "leads", Action: ActionDelete},
	{Module: "attachments", Action: ActionRead},
	{Module: "attachments", Action: ActionCreate},
	{Module: "attachments", Action: ActionDelete},
	{Module: "users", Action: ActionRead},
	{Module: "users", Action: ActionCreate},
	{Module: "roles", Action: ActionRead},
	{Module: "roles", Action: ActionCreate},
	{Module: "roles", Action: ActionUpdate},
	{Module: "roles", Action: ActionDelete},
	{Module: "organization", Action: ActionRead},
	{Module: "organization", Action: ActionUpdate},
	{Module: "chat", Action: ActionRead},
}

var catalogKeys = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Catalog))
	for _, c := range Catalog {
		m[c.Key()] = struct{}{}
	}
	return m
}()

// IsKnown reports whether the pair is in the catalog.
func IsKnown(module, action string) bool {
	_, ok := catalogKeys[Capability{Module: module, Action: action}.Key()]
	return ok
}

// IsKnownKey reports whether a stored key is in the catalog.
func IsKnownKey(key string) bool {
	_, ok := catalogKeys[key]
	return ok
}

// AllCapabilities returns every catalog key (default admin role grant).
func AllCapabilities() []string {
	keys := make([]string, 0, len(Catalog))
	for _, c := range Catalog {
		keys = append(keys, c.Key())
	}
	return keys
}

// ReadCapabilities returns the read-only subset (default member role grant).
func ReadCapabilities() []string {
	var keys []string
	for _, c := range Catalog {
		if c.Action == ActionRead {
			keys = append(keys, c.Key())
		}
	}
	return keys
}
