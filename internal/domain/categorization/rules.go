// Package categorization assigns a category label to a free-text bank
// description using an ordered keyword rule table.
package categorization

// Category labels known to the application. Stored expenses may carry other
// labels entered by hand; these are the ones the classifier produces.
const (
	Comida           = "Comida"
	Transporte       = "Transporte"
	Servicios        = "Servicios"
	Tecnologia       = "Tecnología"
	Entretenimiento  = "Entretenimiento"
	Transferencias   = "Transferencias"
	ComisionesArte   = "Comisiones/Arte"
	Cultura          = "Cultura"
	LicenciasTrabajo = "Licencias/Trabajo"
	Otros            = "Otros"
)

// Categories lists the known labels in display order
var Categories = []string{
	Comida,
	Transporte,
	Servicios,
	Tecnologia,
	Entretenimiento,
	Transferencias,
	ComisionesArte,
	Cultura,
	LicenciasTrabajo,
	Otros,
}

// IsKnown reports whether label is one of Categories
func IsKnown(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}

// Rule maps keywords to a category. A rule matches when any keyword in Any
// occurs in the description, or when every keyword in All occurs. Keywords
// are matched as lowercase substrings.
type Rule struct {
	Category string
	Any      []string
	All      []string
}

// DefaultRules is the bank-statement rule table. Order is precedence: the
// first matching rule wins, so narrower rules must come before broader ones.
func DefaultRules() []Rule {
	return []Rule{
		{Category: Transporte, Any: []string{"uber trip"}},
		{Category: Comida, Any: []string{"uber eats"}},
		{Category: Servicios, Any: []string{"google play", "youtube", "googl"}},
		{Category: Comida, Any: []string{"vending store", "inattiburger", "tottus"}},
		{Category: Tecnologia, Any: []string{"tecnomas", "pc web express", "supletech"}},
		{Category: Transporte, Any: []string{"movired", "transvip", "express plaza", "whoosh"}},
		{Category: Entretenimiento, All: []string{"paypal", "twitch"}},
		{Category: Entretenimiento, Any: []string{"steamgames", "discord"}},
		{Category: Transferencias, Any: []string{"mach", "transfer", "transf"}},
		{Category: ComisionesArte, Any: []string{"suwie"}},
		{Category: Cultura, Any: []string{"antartica", "libro"}},
		{Category: LicenciasTrabajo, Any: []string{"lmx digital"}},
	}
}
