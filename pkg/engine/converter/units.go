package converter

// Category groups units that convert into each other
type Category string

const (
	Distance    Category = "distance"
	Weight      Category = "weight"
	Temperature Category = "temperature"
)

// Unit converts between its own scale and its category's base unit
// (meters, kilograms, kelvin).
type Unit struct {
	Symbol   string
	Name     string
	Category Category
	Aliases  []string
	toBase   func(float64) float64
	fromBase func(float64) float64
}

func linear(symbol, name string, category Category, factor float64, aliases ...string) Unit {
	return Unit{
		Symbol:   symbol,
		Name:     name,
		Category: category,
		Aliases:  aliases,
		toBase:   func(v float64) float64 { return v * factor },
		fromBase: func(v float64) float64 { return v / factor },
	}
}

func affine(symbol, name string, scale, offset float64, aliases ...string) Unit {
	// base = (v + offset) * scale
	return Unit{
		Symbol:   symbol,
		Name:     name,
		Category: Temperature,
		Aliases:  aliases,
		toBase:   func(v float64) float64 { return (v + offset) * scale },
		fromBase: func(v float64) float64 { return v/scale - offset },
	}
}

// Factors use exact definitions: international mile, yard, foot and inch,
// avoirdupois pound and ounce.
var catalog = []Unit{
	linear("m", "meter", Distance, 1, "meters", "metre", "metres"),
	linear("km", "kilometer", Distance, 1000, "kilometers", "kilometre", "kilometres", "kms"),
	linear("cm", "centimeter", Distance, 0.01, "centimeters", "centimetre", "centimetres"),
	linear("mm", "millimeter", Distance, 0.001, "millimeters", "millimetre", "millimetres"),
	linear("mi", "mile", Distance, 1609.344, "miles"),
	linear("yd", "yard", Distance, 0.9144, "yards", "yds"),
	linear("ft", "foot", Distance, 0.3048, "feet"),
	linear("in", "inch", Distance, 0.0254, "inches"),
	linear("nmi", "nautical mile", Distance, 1852, "nautical miles", "nautical_mile", "nautical_miles"),

	linear("kg", "kilogram", Weight, 1, "kilograms", "kgs", "kilo", "kilos"),
	linear("g", "gram", Weight, 0.001, "grams"),
	linear("mg", "milligram", Weight, 1e-6, "milligrams"),
	linear("lb", "pound", Weight, 0.45359237, "lbs", "pounds"),
	linear("oz", "ounce", Weight, 0.028349523125, "ounces"),
	linear("st", "stone", Weight, 6.35029318, "stones"),
	linear("t", "tonne", Weight, 1000, "tonnes", "metric ton", "metric tons"),

	affine("c", "celsius", 1, 273.15, "°c", "degc", "deg c", "centigrade"),
	affine("f", "fahrenheit", 5.0/9.0, 459.67, "°f", "degf", "deg f"),
	affine("k", "kelvin", 1, 0, "kelvins"),
}
