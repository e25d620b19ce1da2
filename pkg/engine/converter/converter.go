// Package converter performs deterministic unit conversions within a
// category. Every unit is a pure pair of functions to and from the category's
// base unit, so adding a unit is one catalog entry.
package converter

import (
	"math"
	"sort"
	"strings"

	"github.com/harun/mathroute/pkg/faults"
	"github.com/harun/mathroute/pkg/registry"
)

var index = buildIndex()

func buildIndex() map[string]*Unit {
	idx := make(map[string]*Unit)
	for i := range catalog {
		u := &catalog[i]
		idx[normalizeUnit(u.Symbol)] = u
		idx[normalizeUnit(u.Name)] = u
		for _, alias := range u.Aliases {
			idx[normalizeUnit(alias)] = u
		}
	}
	return idx
}

func normalizeUnit(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".")
	return strings.Join(strings.Fields(s), " ")
}

// Lookup resolves a unit symbol, name or alias.
func Lookup(unit string) (*Unit, bool) {
	u, ok := index[normalizeUnit(unit)]
	return u, ok
}

// Units returns the symbols of a category's units, sorted.
func Units(category Category) []string {
	var symbols []string
	for _, u := range catalog {
		if u.Category == category {
			symbols = append(symbols, u.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// Categories returns every supported category
func Categories() []Category {
	return []Category{Distance, Weight, Temperature}
}

// Convert converts value from one unit to another inside category. An empty
// category accepts any pair of units sharing a category.
func Convert(category Category, value float64, from, to string) (float64, error) {
	src, ok := Lookup(from)
	if !ok {
		return 0, faults.New(faults.UnsupportedConversion, "from", "unknown unit %q", from)
	}
	dst, ok := Lookup(to)
	if !ok {
		return 0, faults.New(faults.UnsupportedConversion, "to", "unknown unit %q", to)
	}

	if category != "" {
		if src.Category != category {
			return 0, faults.New(faults.UnsupportedConversion, "from", "%s is not a %s unit", src.Name, category)
		}
		if dst.Category != category {
			return 0, faults.New(faults.UnsupportedConversion, "to", "%s is not a %s unit", dst.Name, category)
		}
	} else if src.Category != dst.Category {
		return 0, faults.New(faults.UnsupportedConversion, "", "cannot convert %s (%s) to %s (%s)", src.Name, src.Category, dst.Name, dst.Category)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, faults.New(faults.InvalidDomain, "value", "value must be a finite number")
	}

	base := src.toBase(value)
	if src.Category == Temperature && base < -1e-9 {
		return 0, faults.New(faults.InvalidDomain, "value", "%g %s is below absolute zero", value, src.Name)
	}

	return dst.fromBase(base), nil
}

// Operations returns the converter registry entries: one per category plus
// "convert", which infers the category from the units.
func Operations() []registry.Operation {
	var ops []registry.Operation
	for _, c := range Categories() {
		ops = append(ops, operation(string(c), c,
			"Convert a "+string(c)+" value between units: "+strings.Join(Units(c), ", ")))
	}
	ops = append(ops, operation("convert", "",
		"Convert a value between two units of the same category (distance, weight or temperature)"))
	return ops
}

func operation(name string, category Category, description string) registry.Operation {
	return registry.Operation{
		Tool:        registry.ToolConverter,
		Name:        name,
		Description: description,
		Params: []registry.Param{
			{Name: "value", Type: registry.TypeNumber, Description: "Quantity to convert, exactly as stated by the user"},
			{Name: "from", Type: registry.TypeString, Description: "Source unit abbreviation, lowercase"},
			{Name: "to", Type: registry.TypeString, Description: "Target unit abbreviation, lowercase"},
		},
		Func: func(args registry.Args) (interface{}, error) {
			return Convert(category, args.Float("value"), args.String("from"), args.String("to"))
		},
	}
}
