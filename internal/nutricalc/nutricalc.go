// Package nutricalc converts per-100 product profiles into absolute nutrition values
// and sums them up the plan tree (item -> meal -> day -> plan average).
package nutricalc

import (
	"math"
	"strconv"
)

// Per100 is a food product's macro profile per 100 units (grams).
type Per100 struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Macros holds absolute nutrition values.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Add returns the element-wise sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// Scale multiplies every value by f.
func (m Macros) Scale(f float64) Macros {
	return Macros{
		Calories: m.Calories * f,
		Protein:  m.Protein * f,
		Carbs:    m.Carbs * f,
		Fat:      m.Fat * f,
	}
}

// Rounded applies display precision: whole kcal, grams to one decimal.
func (m Macros) Rounded() Macros {
	return Macros{
		Calories: math.Round(m.Calories),
		Protein:  round1(m.Protein),
		Carbs:    round1(m.Carbs),
		Fat:      round1(m.Fat),
	}
}

// ComputeItemNutrition scales a product profile to the consumed quantity.
// Values are not rounded. Zero or negative quantities pass through the same formula.
func ComputeItemNutrition(p Per100, quantity float64) Macros {
	f := quantity / 100
	return Macros{
		Calories: p.Calories * f,
		Protein:  p.Protein * f,
		Carbs:    p.Carbs * f,
		Fat:      p.Fat * f,
	}
}

// AggregateMeal sums item nutrition. An empty meal yields zero totals.
func AggregateMeal(items []Macros) Macros {
	var total Macros
	for _, it := range items {
		total = total.Add(it)
	}
	return total
}

// AggregateDay sums the totals of every meal in a day.
func AggregateDay(meals [][]Macros) Macros {
	var total Macros
	for _, items := range meals {
		total = total.Add(AggregateMeal(items))
	}
	return total
}

// AggregatePlanAverages returns the per-day average of the given day totals.
// The divisor is never below one, so an empty plan averages to zero.
func AggregatePlanAverages(days []Macros) Macros {
	sum := AggregateMeal(days)
	n := len(days)
	if n < 1 {
		n = 1
	}
	return sum.Scale(1 / float64(n))
}

// FormatCalories renders kcal without decimals.
func FormatCalories(v float64) string {
	return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
}

// FormatGrams renders grams with one decimal.
func FormatGrams(v float64) string {
	return strconv.FormatFloat(round1(v), 'f', 1, 64)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
