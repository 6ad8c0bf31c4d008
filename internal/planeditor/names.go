package planeditor

import "fmt"

// DefaultMealNames are the meal slot names handed out by AddMeal, in order.
var DefaultMealNames = []string{
	"Pusryčiai",
	"Priešpiečiai",
	"Pietūs",
	"Pavakariai",
	"Vakarienė",
	"Naktipiečiai",
}

// DefaultMealName returns the name for a meal at position n (0-based).
func DefaultMealName(n int) string {
	if n >= 0 && n < len(DefaultMealNames) {
		return DefaultMealNames[n]
	}
	return fmt.Sprintf("Valgis %d", n+1)
}
