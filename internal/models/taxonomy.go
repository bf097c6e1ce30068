package models

import "strings"

// CategoryOther and SubcategoryUncategorized are the universal fallbacks used
// whenever categorization fails or a response cannot be matched back to its
// transaction.
const (
	CategoryOther            = "Other"
	SubcategoryUncategorized = "Uncategorized"
)

// CategoryDef is one top-level category with its fixed subcategories.
type CategoryDef struct {
	Name          string
	Subcategories []string
}

// taxonomy is the fixed two-level category space transactions are classified
// into. Downstream analytics key on these exact strings; do not rename or
// mutate at runtime.
var taxonomy = []CategoryDef{
	{"Food & Dining", []string{"Restaurants", "Groceries", "Fast Food", "Coffee & Beverages", "Food Delivery"}},
	{"Shopping", []string{"Clothing & Apparel", "Electronics", "Home & Garden", "Online Shopping", "Department Stores"}},
	{"Bills & Utilities", []string{"Electricity", "Water", "Gas", "Internet & Phone", "Cable & TV", "Insurance"}},
	{"Transportation", []string{"Gas & Fuel", "Public Transit", "Parking", "Taxi & Rideshare", "Vehicle Maintenance"}},
	{"Entertainment", []string{"Movies & Theater", "Sports & Recreation", "Music & Concerts", "Gaming", "Streaming Services"}},
	{"Healthcare", []string{"Doctor & Medical", "Pharmacy", "Dental", "Hospital", "Health Insurance"}},
	{"Education", []string{"Tuition", "Books & Supplies", "Courses & Training"}},
	{"Personal Care", []string{"Hair & Beauty", "Gym & Fitness", "Personal Services"}},
	{"Travel", []string{"Hotels", "Flights", "Car Rental", "Travel Services"}},
	{"Financial", []string{"Bank Fees", "Interest", "Investment", "Loan Payment", "Transfer Fees"}},
	{"Income", []string{"Salary", "Freelance", "Investment Returns", "Refunds", "Other Income"}},
	{"Transfers", []string{"Internal Transfer", "External Transfer", "Payment to Others"}},
	{CategoryOther, []string{SubcategoryUncategorized, "Miscellaneous"}},
}

var categoryIndex = func() map[string]CategoryDef {
	idx := make(map[string]CategoryDef, len(taxonomy))
	for _, def := range taxonomy {
		idx[def.Name] = def
	}
	return idx
}()

// Taxonomy returns the ordered category definitions.
func Taxonomy() []CategoryDef {
	out := make([]CategoryDef, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// IsCategory reports whether name is a top-level taxonomy category.
func IsCategory(name string) bool {
	_, ok := categoryIndex[name]
	return ok
}

// Subcategories returns the subcategories of a category, or nil if the
// category is unknown.
func Subcategories(category string) []string {
	def, ok := categoryIndex[category]
	if !ok {
		return nil
	}
	out := make([]string, len(def.Subcategories))
	copy(out, def.Subcategories)
	return out
}

// TaxonomyPromptList renders the taxonomy as the "- Category: sub, sub" list
// embedded in categorization prompts.
func TaxonomyPromptList() string {
	var b strings.Builder
	for _, def := range taxonomy {
		b.WriteString("- ")
		b.WriteString(def.Name)
		b.WriteString(": ")
		b.WriteString(strings.Join(def.Subcategories, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
