package planeditor

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrProductNotFound = errors.New("product not found")
)

// Editor mutates a Plan while keeping day and meal numbers dense and the
// selection inside the tree. It is not safe for concurrent use.
type Editor struct {
	plan       Plan
	activeDay  int
	activeMeal int
	catalog    Catalog
}

// New returns an editor holding a fresh plan with one day and one default meal.
func New(catalog Catalog) *Editor {
	e := &Editor{catalog: catalog}
	e.plan.Days = []Day{newDay(1)}
	return e
}

// Load returns an editor over a copy of p, renumbered.
func Load(p Plan, catalog Catalog) *Editor {
	e := &Editor{plan: p.Clone(), catalog: catalog}
	e.plan.Renumber()
	e.clamp()
	return e
}

func newDay(number int) Day {
	return Day{
		DayNumber: number,
		Meals:     []Meal{{MealNumber: 1, Name: DefaultMealName(0), Items: []Item{}}},
	}
}

// SetCatalog swaps the product catalog used by AddFoodItem.
func (e *Editor) SetCatalog(c Catalog) { e.catalog = c }

// Plan returns a deep copy of the current tree.
func (e *Editor) Plan() Plan { return e.plan.Clone() }

// Selection returns the active day and meal indexes.
func (e *Editor) Selection() (day, meal int) { return e.activeDay, e.activeMeal }

func (e *Editor) SetName(name string) { e.plan.Name = name }

func (e *Editor) SetDescription(desc string) { e.plan.Description = desc }

// Select moves the selection. Out-of-range indexes are rejected.
func (e *Editor) Select(dayIndex, mealIndex int) error {
	d, err := e.day(dayIndex)
	if err != nil {
		return err
	}
	switch {
	case len(d.Meals) == 0 && mealIndex != 0:
		return ErrIndexOutOfRange
	case len(d.Meals) > 0 && (mealIndex < 0 || mealIndex >= len(d.Meals)):
		return ErrIndexOutOfRange
	}
	e.activeDay, e.activeMeal = dayIndex, mealIndex
	return nil
}

// AddDay appends a day numbered one past the highest existing number and selects it.
func (e *Editor) AddDay() {
	next := 1
	for _, d := range e.plan.Days {
		if d.DayNumber >= next {
			next = d.DayNumber + 1
		}
	}
	e.plan.Days = append(e.plan.Days, newDay(next))
	e.activeDay = len(e.plan.Days) - 1
	e.activeMeal = 0
}

// RemoveDay deletes a day and renumbers the rest 1..N.
func (e *Editor) RemoveDay(dayIndex int) error {
	if _, err := e.day(dayIndex); err != nil {
		return err
	}
	e.plan.Days = append(e.plan.Days[:dayIndex], e.plan.Days[dayIndex+1:]...)
	renumberDays(e.plan.Days)
	e.clamp()
	return nil
}

// AddMeal appends a meal with the next default slot name and selects it.
func (e *Editor) AddMeal(dayIndex int) error {
	d, err := e.day(dayIndex)
	if err != nil {
		return err
	}
	n := len(d.Meals)
	d.Meals = append(d.Meals, Meal{MealNumber: n + 1, Name: DefaultMealName(n), Items: []Item{}})
	e.activeDay, e.activeMeal = dayIndex, n
	return nil
}

// RemoveMeal deletes a meal and renumbers the day's meals 1..N.
func (e *Editor) RemoveMeal(dayIndex, mealIndex int) error {
	d, err := e.day(dayIndex)
	if err != nil {
		return err
	}
	if mealIndex < 0 || mealIndex >= len(d.Meals) {
		return ErrIndexOutOfRange
	}
	d.Meals = append(d.Meals[:mealIndex], d.Meals[mealIndex+1:]...)
	renumberMeals(d.Meals)
	e.clamp()
	return nil
}

// RenameMeal sets a free-text meal name.
func (e *Editor) RenameMeal(dayIndex, mealIndex int, name string) error {
	m, err := e.meal(dayIndex, mealIndex)
	if err != nil {
		return err
	}
	m.Name = name
	return nil
}

// AddFoodItem appends a product line to a meal. An unknown product leaves the tree
// untouched and returns ErrProductNotFound.
func (e *Editor) AddFoodItem(dayIndex, mealIndex int, productID uuid.UUID, quantity float64) error {
	m, err := e.meal(dayIndex, mealIndex)
	if err != nil {
		return err
	}
	if e.catalog == nil {
		return ErrProductNotFound
	}
	p, ok := e.catalog.Lookup(productID)
	if !ok {
		return ErrProductNotFound
	}
	m.Items = append(m.Items, NewItem(p, quantity))
	return nil
}

// UpdateItemQuantity recomputes a single item from its snapshot profile.
func (e *Editor) UpdateItemQuantity(dayIndex, mealIndex, itemIndex int, quantity float64) error {
	m, err := e.meal(dayIndex, mealIndex)
	if err != nil {
		return err
	}
	if itemIndex < 0 || itemIndex >= len(m.Items) {
		return ErrIndexOutOfRange
	}
	it := m.Items[itemIndex]
	m.Items[itemIndex] = NewItem(Product{ID: it.ProductID, Name: it.ProductName, Per100: it.Per100}, quantity)
	return nil
}

// RemoveFoodItem deletes an item by position.
func (e *Editor) RemoveFoodItem(dayIndex, mealIndex, itemIndex int) error {
	m, err := e.meal(dayIndex, mealIndex)
	if err != nil {
		return err
	}
	if itemIndex < 0 || itemIndex >= len(m.Items) {
		return ErrIndexOutOfRange
	}
	m.Items = append(m.Items[:itemIndex], m.Items[itemIndex+1:]...)
	return nil
}

// Validate reports whether the plan may be submitted.
func (e *Editor) Validate() error {
	return Validate(e.plan)
}

// Totals summarizes the current tree.
func (e *Editor) Totals() Summary {
	return Summarize(e.plan)
}

func (e *Editor) day(i int) (*Day, error) {
	if i < 0 || i >= len(e.plan.Days) {
		return nil, ErrIndexOutOfRange
	}
	return &e.plan.Days[i], nil
}

func (e *Editor) meal(dayIndex, mealIndex int) (*Meal, error) {
	d, err := e.day(dayIndex)
	if err != nil {
		return nil, err
	}
	if mealIndex < 0 || mealIndex >= len(d.Meals) {
		return nil, ErrIndexOutOfRange
	}
	return &d.Meals[mealIndex], nil
}

func (e *Editor) clamp() {
	e.activeDay = clampIndex(e.activeDay, len(e.plan.Days))
	if len(e.plan.Days) == 0 {
		e.activeMeal = 0
		return
	}
	e.activeMeal = clampIndex(e.activeMeal, len(e.plan.Days[e.activeDay].Meals))
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// ValidationError is a user-facing reason a plan cannot be submitted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks the submit preconditions: a non-blank name, at least one
// day and at least one meal per day.
func Validate(p Plan) error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "plan name is required"}
	}
	if len(p.Days) == 0 {
		return &ValidationError{Field: "days", Message: "plan must have at least one day"}
	}
	for i, d := range p.Days {
		if len(d.Meals) == 0 {
			return &ValidationError{Field: "days", Message: dayWithoutMeals(i + 1)}
		}
	}
	return nil
}
