package lead

import "strings"

// Category names. Each maps to its own collection in the backing store.
const (
	CategoryBilling   = "billing"
	CategoryInsurance = "insurance"
	CategoryDesign    = "design"
	CategoryEbook     = "ebook"
	CategoryAuth      = "auth"
)

// ShiftConfig describes the overnight reporting window for a category.
// The window always spans exactly Duration hours from StartHour local
// time; the end boundary is derived by addition, never by a second
// hour-of-day rule.
type ShiftConfig struct {
	StartHour     int
	DurationHours int
}

// Category carries the per-category schema and aggregation rules. The
// HTTP boundary resolves a category once and passes the value down; no
// other layer re-inspects the raw name.
type Category struct {
	Name string
	// IDField is the form field carrying the record identifier.
	IDField string
	// ImplicitApproval makes new records start Charged instead of Pending.
	ImplicitApproval bool
	// CountAllStatuses makes every record count toward shift totals
	// regardless of status.
	CountAllStatuses bool
	Shift            ShiftConfig

	Agents    []string
	Providers []string
	LLCs      []string
}

var defaultShift = ShiftConfig{StartHour: 19, DurationHours: 11}

var categories = map[string]Category{
	CategoryBilling: {
		Name:      CategoryBilling,
		IDField:   "order_id",
		Shift:     defaultShift,
		Agents:    []string{"Arham Kaleem", "Arham Ali", "Haziq"},
		Providers: []string{"Spectrum", "Xfinity", "Frontier", "Optimum"},
		LLCs:      []string{"Bite Bazaar LLC", "Apex Prime Solutions"},
	},
	CategoryInsurance: {
		Name:    CategoryInsurance,
		IDField: "record_id",
		Shift:   defaultShift,
		Agents:  []string{"Arham Kaleem", "Arham Ali", "Haziq", "Usama", "Areeb"},
		LLCs:    []string{"LMI"},
	},
	CategoryDesign: {
		Name:             CategoryDesign,
		IDField:          "record_id",
		ImplicitApproval: true,
		CountAllStatuses: true,
		Shift:            defaultShift,
	},
	CategoryEbook: {
		Name:             CategoryEbook,
		IDField:          "record_id",
		ImplicitApproval: true,
		CountAllStatuses: true,
		Shift:            defaultShift,
	},
	CategoryAuth: {
		Name:    CategoryAuth,
		IDField: "record_id",
		Shift:   defaultShift,
	},
}

// ApplyShift overrides the shift window on every category. Called once at
// startup when the deployment configures non-default boundaries.
func ApplyShift(cfg ShiftConfig) {
	if cfg.StartHour < 0 || cfg.StartHour > 23 || cfg.DurationHours <= 0 {
		return
	}
	for name, cat := range categories {
		cat.Shift = cfg
		categories[name] = cat
	}
}

// LookupCategory resolves a raw category name. The second return is false
// for unknown names.
func LookupCategory(name string) (Category, bool) {
	cat, ok := categories[strings.ToLower(strings.TrimSpace(name))]
	return cat, ok
}

// Categories returns the lead-bearing categories (auth excluded) in a
// stable order.
func Categories() []Category {
	return []Category{
		categories[CategoryBilling],
		categories[CategoryInsurance],
		categories[CategoryDesign],
		categories[CategoryEbook],
	}
}
