package catalog

// Materials is the fixed enumeration of frame materials, in display order.
// The first entry is the default when a selection carries no explicit choice.
var Materials = []string{"AIO", "TRILOGIQ", "INDEVA"}

// accessoryCategories is the fixed accessory catalog, in display order.
var accessoryCategories = []AccessoryCategory{
	{
		Key:  "support",
		Name: "Supports",
		Items: []Accessory{
			{ID: 1, Name: "Support Simple", Price: 5000, Image: "/support1.jpg"},
			{ID: 2, Name: "Support Double", Price: 7500, Image: "/support2.jpg"},
			{ID: 3, Name: "Support 3", Price: 7500, Image: "/support3.jpg"},
			{ID: 4, Name: "Support 4", Price: 7500, Image: "/support4.jpg"},
			{ID: 5, Name: "Support 5", Price: 7500, Image: "/support5.jpg"},
			{ID: 6, Name: "Support 6", Price: 7500, Image: "/support6.jpg"},
		},
	},
	{
		Key:  "fixation",
		Name: "Fixations",
		Items: []Accessory{
			{ID: 7, Name: "Fixation Standard", Price: 3000, Image: "/fixation1.jpg"},
			{ID: 8, Name: "Fixation Premium", Price: 4500, Image: "/fixation2.jpg"},
		},
	},
	{
		Key:  "eclairage",
		Name: "Éclairage",
		Items: []Accessory{
			{ID: 9, Name: "LED Standard", Price: 6000, Image: "/led1.jpg"},
			{ID: 10, Name: "LED Premium", Price: 9000, Image: "/led2.jpg"},
		},
	},
}

// AccessoryCategories returns the fixed accessory catalog. Callers receive a
// copy so the canonical data cannot be mutated.
func AccessoryCategories() []AccessoryCategory {
	out := make([]AccessoryCategory, len(accessoryCategories))
	for i, cat := range accessoryCategories {
		items := make([]Accessory, len(cat.Items))
		copy(items, cat.Items)
		out[i] = AccessoryCategory{Key: cat.Key, Name: cat.Name, Items: items}
	}
	return out
}

// FindAccessory resolves an accessory by category key and id.
func FindAccessory(categoryKey string, id int) (Accessory, bool) {
	for _, cat := range accessoryCategories {
		if cat.Key != categoryKey {
			continue
		}
		for _, acc := range cat.Items {
			if acc.ID == id {
				return acc, true
			}
		}
	}
	return Accessory{}, false
}

// DefaultMaterial is the material applied when a selection has no explicit choice.
func DefaultMaterial() string {
	return Materials[0]
}

// ValidMaterial reports whether the value belongs to the fixed enumeration.
func ValidMaterial(value string) bool {
	for _, m := range Materials {
		if m == value {
			return true
		}
	}
	return false
}
