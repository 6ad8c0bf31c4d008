package planeditor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fdg312/fitclub/internal/nutricalc"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	chickenID = uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	riceID    = uuid.MustParse("00000000-0000-0000-0000-0000000000a2")
)

func testCatalog() StaticCatalog {
	return StaticCatalog{
		chickenID: {ID: chickenID, Name: "Chicken breast", Per100: nutricalc.Per100{Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6}},
		riceID:    {ID: riceID, Name: "Rice", Per100: nutricalc.Per100{Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3}},
	}
}

func dayNumbers(p Plan) []int {
	out := make([]int, 0, len(p.Days))
	for _, d := range p.Days {
		out = append(out, d.DayNumber)
	}
	return out
}

func mealNumbers(d Day) []int {
	out := make([]int, 0, len(d.Meals))
	for _, m := range d.Meals {
		out = append(out, m.MealNumber)
	}
	return out
}

func TestNewEditorStartsWithOneDayOneMeal(t *testing.T) {
	e := New(testCatalog())
	p := e.Plan()

	require.Len(t, p.Days, 1)
	assert.Equal(t, 1, p.Days[0].DayNumber)
	require.Len(t, p.Days[0].Meals, 1)
	assert.Equal(t, "Pusryčiai", p.Days[0].Meals[0].Name)
	assert.Equal(t, 1, p.Days[0].Meals[0].MealNumber)
	assert.Empty(t, p.Days[0].Meals[0].Items)
}

func TestAddFoodItemComputesMealTotals(t *testing.T) {
	e := New(testCatalog())
	require.NoError(t, e.AddFoodItem(0, 0, chickenID, 150))
	require.NoError(t, e.AddFoodItem(0, 0, riceID, 200))

	p := e.Plan()
	items := p.Days[0].Meals[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, "Chicken breast", items[0].ProductName)
	assert.InDelta(t, 247.5, items[0].Nutrition.Calories, 1e-9)
	assert.InDelta(t, 46.5, items[0].Nutrition.Protein, 1e-9)
	assert.InDelta(t, 5.4, items[0].Nutrition.Fat, 1e-9)

	totals := e.Totals().Days[0].Meals[0].Totals
	assert.InDelta(t, 507.5, totals.Calories, 1e-9)
	assert.InDelta(t, 51.9, totals.Protein, 1e-9)
	assert.InDelta(t, 56, totals.Carbs, 1e-9)
	assert.InDelta(t, 6.0, totals.Fat, 1e-9)
}

func TestAddFoodItemUnknownProductLeavesTreeUnchanged(t *testing.T) {
	e := New(testCatalog())
	before := e.Plan()

	err := e.AddFoodItem(0, 0, uuid.New(), 100)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, before, e.Plan())
}

func TestAddFoodItemWithoutCatalog(t *testing.T) {
	e := New(nil)
	assert.ErrorIs(t, e.AddFoodItem(0, 0, chickenID, 100), ErrProductNotFound)
}

func TestAddDayUsesMaxNumberPlusOne(t *testing.T) {
	e := Load(Plan{Name: "p", Days: []Day{
		{DayNumber: 1, Meals: []Meal{{Name: "a"}}},
	}}, nil)
	e.AddDay()
	e.AddDay()
	assert.Equal(t, []int{1, 2, 3}, dayNumbers(e.Plan()))

	day, meal := e.Selection()
	assert.Equal(t, 2, day)
	assert.Equal(t, 0, meal)

	// Gaps left by out-of-order numbers are never reused.
	e.plan.Days[1].DayNumber = 7
	e.AddDay()
	assert.Equal(t, []int{1, 7, 3, 8}, dayNumbers(e.Plan()))
	assert.Equal(t, "Pusryčiai", e.Plan().Days[3].Meals[0].Name)
}

func TestRemoveMiddleDayRenumbers(t *testing.T) {
	e := New(testCatalog())
	e.AddDay()
	e.AddDay()
	require.Equal(t, []int{1, 2, 3}, dayNumbers(e.Plan()))

	require.NoError(t, e.RemoveDay(1))
	assert.Equal(t, []int{1, 2}, dayNumbers(e.Plan()))
}

func TestRemoveLastDayClampsSelection(t *testing.T) {
	e := New(testCatalog())
	e.AddDay()
	e.AddDay()
	require.NoError(t, e.Select(2, 0))

	require.NoError(t, e.RemoveDay(2))
	day, meal := e.Selection()
	assert.Equal(t, 1, day)
	assert.Equal(t, 0, meal)

	require.NoError(t, e.RemoveDay(1))
	require.NoError(t, e.RemoveDay(0))
	day, meal = e.Selection()
	assert.Equal(t, 0, day)
	assert.Equal(t, 0, meal)
	assert.Empty(t, e.Plan().Days)
}

func TestAddMealCyclesDefaultNames(t *testing.T) {
	e := New(testCatalog())
	for i := 0; i < 7; i++ {
		require.NoError(t, e.AddMeal(0))
	}

	meals := e.Plan().Days[0].Meals
	require.Len(t, meals, 8)
	for i, name := range DefaultMealNames {
		assert.Equal(t, name, meals[i].Name)
	}
	assert.Equal(t, "Valgis 7", meals[6].Name)
	assert.Equal(t, "Valgis 8", meals[7].Name)
}

func TestMealNumbersStayDense(t *testing.T) {
	e := New(testCatalog())
	ops := []struct {
		add    bool
		remove int
	}{
		{add: true}, {add: true}, {add: true},
		{remove: 1}, {add: true}, {remove: 0}, {remove: 2}, {add: true}, {add: true}, {remove: 3},
	}
	for i, op := range ops {
		if op.add {
			require.NoError(t, e.AddMeal(0))
		} else {
			require.NoError(t, e.RemoveMeal(0, op.remove), "op %d", i)
		}
		day := e.Plan().Days[0]
		want := make([]int, len(day.Meals))
		for j := range want {
			want[j] = j + 1
		}
		assert.Equal(t, want, mealNumbers(day), "after op %d", i)
	}
}

func TestRemoveMealClampsSelection(t *testing.T) {
	e := New(testCatalog())
	require.NoError(t, e.AddMeal(0))
	_, meal := e.Selection()
	require.Equal(t, 1, meal)

	require.NoError(t, e.RemoveMeal(0, 1))
	_, meal = e.Selection()
	assert.Equal(t, 0, meal)
}

func TestRenameMeal(t *testing.T) {
	e := New(testCatalog())
	require.NoError(t, e.AddMeal(0))
	require.NoError(t, e.RenameMeal(0, 1, "Pusryčiai"))

	meals := e.Plan().Days[0].Meals
	assert.Equal(t, "Pusryčiai", meals[0].Name)
	assert.Equal(t, "Pusryčiai", meals[1].Name)
}

func TestUpdateItemQuantityIsIdempotent(t *testing.T) {
	e := New(testCatalog())
	require.NoError(t, e.AddFoodItem(0, 0, chickenID, 150))
	require.NoError(t, e.AddFoodItem(0, 0, riceID, 200))

	require.NoError(t, e.UpdateItemQuantity(0, 0, 0, 100))
	first := e.Plan().Days[0].Meals[0].Items
	require.NoError(t, e.UpdateItemQuantity(0, 0, 0, 100))
	second := e.Plan().Days[0].Meals[0].Items

	assert.Equal(t, first, second)
	assert.InDelta(t, 165, second[0].Nutrition.Calories, 1e-9)
	assert.InDelta(t, 260, second[1].Nutrition.Calories, 1e-9, "other items untouched")
}

func TestUpdateItemQuantityUsesSnapshot(t *testing.T) {
	cat := testCatalog()
	e := New(cat)
	require.NoError(t, e.AddFoodItem(0, 0, riceID, 100))

	p := cat[riceID]
	p.Per100.Calories = 999
	cat[riceID] = p

	require.NoError(t, e.UpdateItemQuantity(0, 0, 0, 200))
	assert.InDelta(t, 260, e.Plan().Days[0].Meals[0].Items[0].Nutrition.Calories, 1e-9)
}

func TestRemoveFoodItem(t *testing.T) {
	e := New(testCatalog())
	require.NoError(t, e.AddFoodItem(0, 0, chickenID, 150))
	require.NoError(t, e.AddFoodItem(0, 0, riceID, 200))

	require.NoError(t, e.RemoveFoodItem(0, 0, 0))
	items := e.Plan().Days[0].Meals[0].Items
	require.Len(t, items, 1)
	assert.Equal(t, riceID, items[0].ProductID)
}

func TestOutOfRangeOperations(t *testing.T) {
	e := New(testCatalog())
	before := e.Plan()

	cases := map[string]error{
		"remove day":  e.RemoveDay(3),
		"add meal":    e.AddMeal(-1),
		"remove meal": e.RemoveMeal(0, 5),
		"rename":      e.RenameMeal(1, 0, "x"),
		"add item":    e.AddFoodItem(0, 2, chickenID, 10),
		"update item": e.UpdateItemQuantity(0, 0, 0, 10),
		"remove item": e.RemoveFoodItem(0, 0, 1),
		"select":      e.Select(0, 4),
	}
	for name, err := range cases {
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), name)
	}
	assert.Equal(t, before, e.Plan())
}

func TestValidate(t *testing.T) {
	e := New(testCatalog())

	var verr *ValidationError
	err := e.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	e.SetName("   ")
	require.ErrorAs(t, e.Validate(), &verr)

	e.SetName("Cut week")
	require.NoError(t, e.Validate())

	e.AddDay()
	require.NoError(t, e.RemoveMeal(1, 0))
	require.ErrorAs(t, e.Validate(), &verr)
	assert.Equal(t, "days", verr.Field)
	assert.Equal(t, "day 2 has no meals", verr.Message)

	require.NoError(t, e.RemoveDay(1))
	require.NoError(t, e.RemoveDay(0))
	require.Empty(t, e.Plan().Days)
	require.ErrorAs(t, e.Validate(), &verr)
	assert.Equal(t, "days", verr.Field)
	assert.Equal(t, "plan must have at least one day", verr.Message)
}

func TestLoadRenumbersAndCopies(t *testing.T) {
	src := Plan{Name: "x", Days: []Day{
		{DayNumber: 4, Meals: []Meal{{MealNumber: 9, Name: "a"}, {MealNumber: 2, Name: "b"}}},
		{DayNumber: 2, Meals: []Meal{{MealNumber: 5, Name: "c"}}},
	}}
	e := Load(src, nil)
	p := e.Plan()

	assert.Equal(t, []int{1, 2}, dayNumbers(p))
	assert.Equal(t, []int{1, 2}, mealNumbers(p.Days[0]))
	assert.Equal(t, 4, src.Days[0].DayNumber, "source plan must not be mutated")

	require.NoError(t, e.RenameMeal(0, 0, "changed"))
	assert.Equal(t, "a", src.Days[0].Meals[0].Name)
}

func TestSummarizeAverages(t *testing.T) {
	e := New(testCatalog())
	require.NoError(t, e.AddFoodItem(0, 0, riceID, 100))
	e.AddDay()
	require.NoError(t, e.AddFoodItem(1, 0, riceID, 300))

	s := e.Totals()
	require.Len(t, s.Days, 2)
	assert.InDelta(t, 130, s.Days[0].Totals.Calories, 1e-9)
	assert.InDelta(t, 390, s.Days[1].Totals.Calories, 1e-9)
	assert.InDelta(t, 260, s.AveragePerDay.Calories, 1e-9)

	empty := Summarize(Plan{})
	assert.Empty(t, empty.Days)
	assert.Equal(t, nutricalc.Macros{}, empty.AveragePerDay)
}

func ExampleEditor() {
	e := New(testCatalog())
	e.SetName("Lean week")
	_ = e.AddFoodItem(0, 0, chickenID, 150)
	_ = e.AddFoodItem(0, 0, riceID, 200)

	t := e.Totals().Days[0].Meals[0].Totals
	fmt.Println(nutricalc.FormatCalories(t.Calories), nutricalc.FormatGrams(t.Protein))
	// Output: 508 51.9
}
