package nutritionplans

import (
	"github.com/fdg312/fitclub/internal/planeditor"
	"github.com/fdg312/fitclub/internal/storage"
)

// toEditorPlan превращает сохранённый план в дерево редактора
func toEditorPlan(p *storage.NutritionPlan) planeditor.Plan {
	out := planeditor.Plan{
		Name:        p.Name,
		Description: p.Description,
		Days:        make([]planeditor.Day, 0, len(p.Days)),
	}
	for _, d := range p.Days {
		day := planeditor.Day{DayNumber: d.DayNumber, Meals: make([]planeditor.Meal, 0, len(d.Meals))}
		for _, m := range d.Meals {
			meal := planeditor.Meal{MealNumber: m.MealNumber, Name: m.Name, Items: make([]planeditor.Item, 0, len(m.Items))}
			for _, it := range m.Items {
				meal.Items = append(meal.Items, planeditor.Item{
					ProductID:   it.ProductID,
					ProductName: it.ProductName,
					Quantity:    it.Quantity,
					Per100:      it.Per100,
					Nutrition:   it.Nutrition,
				})
			}
			day.Meals = append(day.Meals, meal)
		}
		out.Days = append(out.Days, day)
	}
	return out
}

// applyEditorPlan записывает дерево редактора в план хранилища
func applyEditorPlan(dst *storage.NutritionPlan, p planeditor.Plan) {
	dst.Name = p.Name
	dst.Description = p.Description
	dst.Days = make([]storage.NutritionPlanDay, 0, len(p.Days))
	for _, d := range p.Days {
		day := storage.NutritionPlanDay{DayNumber: d.DayNumber, Meals: make([]storage.NutritionPlanMeal, 0, len(d.Meals))}
		for _, m := range d.Meals {
			meal := storage.NutritionPlanMeal{MealNumber: m.MealNumber, Name: m.Name, Items: make([]storage.NutritionPlanItem, 0, len(m.Items))}
			for _, it := range m.Items {
				meal.Items = append(meal.Items, storage.NutritionPlanItem{
					ProductID:   it.ProductID,
					ProductName: it.ProductName,
					Quantity:    it.Quantity,
					Per100:      it.Per100,
					Nutrition:   it.Nutrition,
				})
			}
			day.Meals = append(day.Meals, meal)
		}
		dst.Days = append(dst.Days, day)
	}
}

func toDTO(p *storage.NutritionPlan) *PlanDTO {
	tree := toEditorPlan(p)
	return &PlanDTO{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		OwnerUserID:      p.OwnerUserID,
		IsSystem:         p.IsSystem,
		IsPublished:      p.IsPublished,
		MembershipPlanID: p.MembershipPlanID,
		Days:             tree.Days,
		Totals:           planeditor.Summarize(tree).Rounded(),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toHeaderDTO(p *storage.NutritionPlan) PlanHeaderDTO {
	return PlanHeaderDTO{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		OwnerUserID:      p.OwnerUserID,
		IsSystem:         p.IsSystem,
		IsPublished:      p.IsPublished,
		MembershipPlanID: p.MembershipPlanID,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
