package planeditor

import (
	"fmt"

	"github.com/fdg312/fitclub/internal/nutricalc"
)

type MealSummary struct {
	MealNumber int              `json:"meal_number"`
	Name       string           `json:"name"`
	Totals     nutricalc.Macros `json:"totals"`
}

type DaySummary struct {
	DayNumber int              `json:"day_number"`
	Meals     []MealSummary    `json:"meals"`
	Totals    nutricalc.Macros `json:"totals"`
}

// Summary holds derived totals for a plan. Values are unrounded.
type Summary struct {
	Days          []DaySummary     `json:"days"`
	AveragePerDay nutricalc.Macros `json:"average_per_day"`
}

// Summarize aggregates item nutrition per meal, per day and as a per-day average.
func Summarize(p Plan) Summary {
	s := Summary{Days: make([]DaySummary, 0, len(p.Days))}
	dayTotals := make([]nutricalc.Macros, 0, len(p.Days))
	for _, d := range p.Days {
		ds := DaySummary{DayNumber: d.DayNumber, Meals: make([]MealSummary, 0, len(d.Meals))}
		meals := make([][]nutricalc.Macros, 0, len(d.Meals))
		for _, m := range d.Meals {
			items := make([]nutricalc.Macros, 0, len(m.Items))
			for _, it := range m.Items {
				items = append(items, it.Nutrition)
			}
			meals = append(meals, items)
			ds.Meals = append(ds.Meals, MealSummary{
				MealNumber: m.MealNumber,
				Name:       m.Name,
				Totals:     nutricalc.AggregateMeal(items),
			})
		}
		ds.Totals = nutricalc.AggregateDay(meals)
		dayTotals = append(dayTotals, ds.Totals)
		s.Days = append(s.Days, ds)
	}
	s.AveragePerDay = nutricalc.AggregatePlanAverages(dayTotals)
	return s
}

// Rounded applies display precision to every total.
func (s Summary) Rounded() Summary {
	out := Summary{Days: make([]DaySummary, len(s.Days)), AveragePerDay: s.AveragePerDay.Rounded()}
	for i, d := range s.Days {
		nd := DaySummary{DayNumber: d.DayNumber, Totals: d.Totals.Rounded(), Meals: make([]MealSummary, len(d.Meals))}
		for j, m := range d.Meals {
			nd.Meals[j] = MealSummary{MealNumber: m.MealNumber, Name: m.Name, Totals: m.Totals.Rounded()}
		}
		out.Days[i] = nd
	}
	return out
}

func dayWithoutMeals(n int) string {
	return fmt.Sprintf("day %d has no meals", n)
}
