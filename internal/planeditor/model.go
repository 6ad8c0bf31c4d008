// Package planeditor keeps an editable nutrition plan tree (days -> meals -> items)
// and its numbering invariants. It performs no I/O.
package planeditor

import (
	"github.com/fdg312/fitclub/internal/nutricalc"
	"github.com/google/uuid"
)

// Item is one product-and-quantity line in a meal. Name and the per-100 profile
// are snapshots taken when the item was added; later product edits do not reach it.
type Item struct {
	ProductID   uuid.UUID        `json:"product_id"`
	ProductName string           `json:"product_name"`
	Quantity    float64          `json:"quantity"`
	Per100      nutricalc.Per100 `json:"per_100"`
	Nutrition   nutricalc.Macros `json:"nutrition"`
}

// Meal is a numbered meal slot of a day.
type Meal struct {
	MealNumber int    `json:"meal_number"`
	Name       string `json:"name"`
	Items      []Item `json:"items"`
}

// Day is a numbered plan day.
type Day struct {
	DayNumber int    `json:"day_number"`
	Meals     []Meal `json:"meals"`
}

// Plan is the editable tree. It carries no storage identity.
type Plan struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Days        []Day  `json:"days"`
}

// Product is the catalog view the editor needs to add an item.
type Product struct {
	ID     uuid.UUID
	Name   string
	Per100 nutricalc.Per100
}

// Catalog resolves product ids.
type Catalog interface {
	Lookup(id uuid.UUID) (Product, bool)
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func(id uuid.UUID) (Product, bool)

func (f CatalogFunc) Lookup(id uuid.UUID) (Product, bool) { return f(id) }

// StaticCatalog is a fixed in-memory catalog.
type StaticCatalog map[uuid.UUID]Product

func (c StaticCatalog) Lookup(id uuid.UUID) (Product, bool) {
	p, ok := c[id]
	return p, ok
}

// NewItem snapshots a product at the given quantity.
func NewItem(p Product, quantity float64) Item {
	return Item{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		Per100:      p.Per100,
		Nutrition:   nutricalc.ComputeItemNutrition(p.Per100, quantity),
	}
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	out := Plan{Name: p.Name, Description: p.Description}
	if p.Days == nil {
		return out
	}
	out.Days = make([]Day, len(p.Days))
	for i, d := range p.Days {
		nd := Day{DayNumber: d.DayNumber}
		if d.Meals != nil {
			nd.Meals = make([]Meal, len(d.Meals))
			for j, m := range d.Meals {
				nm := Meal{MealNumber: m.MealNumber, Name: m.Name}
				if m.Items != nil {
					nm.Items = make([]Item, len(m.Items))
					copy(nm.Items, m.Items)
				}
				nd.Meals[j] = nm
			}
		}
		out.Days[i] = nd
	}
	return out
}

// Renumber assigns dense day and meal numbers in positional order.
func (p *Plan) Renumber() {
	for i := range p.Days {
		p.Days[i].DayNumber = i + 1
		renumberMeals(p.Days[i].Meals)
	}
}

func renumberDays(days []Day) {
	for i := range days {
		days[i].DayNumber = i + 1
	}
}

func renumberMeals(meals []Meal) {
	for i := range meals {
		meals[i].MealNumber = i + 1
	}
}
