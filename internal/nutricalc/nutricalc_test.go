package nutricalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

var (
	chicken = Per100{Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6}
	rice    = Per100{Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3}
)

func assertMacros(t *testing.T, want, got Macros) {
	t.Helper()
	assert.InDelta(t, want.Calories, got.Calories, eps, "calories")
	assert.InDelta(t, want.Protein, got.Protein, eps, "protein")
	assert.InDelta(t, want.Carbs, got.Carbs, eps, "carbs")
	assert.InDelta(t, want.Fat, got.Fat, eps, "fat")
}

func TestComputeItemNutrition(t *testing.T) {
	assertMacros(t, Macros{Calories: 247.5, Protein: 46.5, Carbs: 0, Fat: 5.4}, ComputeItemNutrition(chicken, 150))
	assertMacros(t, Macros{Calories: 260, Protein: 5.4, Carbs: 56, Fat: 0.6}, ComputeItemNutrition(rice, 200))
}

func TestComputeItemNutritionZeroAndNegative(t *testing.T) {
	assert.Equal(t, Macros{}, ComputeItemNutrition(chicken, 0))

	neg := ComputeItemNutrition(chicken, -100)
	assertMacros(t, Macros{Calories: -165, Protein: -31, Carbs: 0, Fat: -3.6}, neg)
}

func TestComputeItemNutritionIsLinear(t *testing.T) {
	quantities := []float64{0, 1, 12.5, 50, 100, 333.3}
	for _, q1 := range quantities {
		for _, q2 := range quantities {
			whole := ComputeItemNutrition(rice, q1+q2)
			parts := ComputeItemNutrition(rice, q1).Add(ComputeItemNutrition(rice, q2))
			assertMacros(t, whole, parts)
		}
	}
}

func TestAggregateMeal(t *testing.T) {
	items := []Macros{
		ComputeItemNutrition(chicken, 150),
		ComputeItemNutrition(rice, 200),
	}
	assertMacros(t, Macros{Calories: 507.5, Protein: 51.9, Carbs: 56, Fat: 6.0}, AggregateMeal(items))
}

func TestAggregateMealEmpty(t *testing.T) {
	assert.Equal(t, Macros{}, AggregateMeal(nil))
	assert.Equal(t, Macros{}, AggregateMeal([]Macros{}))
}

func TestAggregateMealOrderIndependent(t *testing.T) {
	a := ComputeItemNutrition(chicken, 120)
	b := ComputeItemNutrition(rice, 80)
	c := Macros{Calories: 12, Protein: 0.4, Carbs: 3, Fat: 0.1}

	want := AggregateMeal([]Macros{a, b, c})
	perms := [][]Macros{
		{a, c, b},
		{b, a, c},
		{b, c, a},
		{c, a, b},
		{c, b, a},
	}
	for _, p := range perms {
		assertMacros(t, want, AggregateMeal(p))
	}
}

func TestAggregateDay(t *testing.T) {
	breakfast := []Macros{ComputeItemNutrition(rice, 100)}
	lunch := []Macros{ComputeItemNutrition(chicken, 150), ComputeItemNutrition(rice, 200)}

	got := AggregateDay([][]Macros{breakfast, lunch, nil})
	assertMacros(t, Macros{Calories: 637.5, Protein: 54.6, Carbs: 84, Fat: 6.3}, got)
}

func TestAggregatePlanAverages(t *testing.T) {
	days := []Macros{
		{Calories: 2000, Protein: 150, Carbs: 200, Fat: 60},
		{Calories: 1800, Protein: 130, Carbs: 180, Fat: 50},
	}
	assertMacros(t, Macros{Calories: 1900, Protein: 140, Carbs: 190, Fat: 55}, AggregatePlanAverages(days))
}

func TestAggregatePlanAveragesEmpty(t *testing.T) {
	require.NotPanics(t, func() {
		assert.Equal(t, Macros{}, AggregatePlanAverages(nil))
	})
	assert.Equal(t, Macros{}, AggregatePlanAverages([]Macros{}))
}

func TestDisplayFormatting(t *testing.T) {
	assert.Equal(t, "508", FormatCalories(507.5))
	assert.Equal(t, "248", FormatCalories(247.5))
	assert.Equal(t, "51.9", FormatGrams(51.9))
	assert.Equal(t, "5.4", FormatGrams(5.4000000001))
	assert.Equal(t, "0.0", FormatGrams(0))

	r := Macros{Calories: 507.5, Protein: 51.94, Carbs: 56.06, Fat: 6.0000001}.Rounded()
	assert.Equal(t, Macros{Calories: 508, Protein: 51.9, Carbs: 56.1, Fat: 6}, r)
}
