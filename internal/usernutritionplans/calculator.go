package usernutritionplans

import (
	"fmt"
	"math"
	"strings"
)

// Goals
const (
	GoalLose     = "lose"
	GoalMaintain = "maintain"
	GoalGain     = "gain"
)

// Statuses
const (
	StatusActive = "active"
	StatusPaused = "paused"
)

var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

var goalFactors = map[string]float64{
	GoalLose:     0.8,
	GoalMaintain: 1.0,
	GoalGain:     1.15,
}

const fatShare = 0.25

// Targets — результат расчёта суточной нормы
type Targets struct {
	BMR            float64 `json:"bmr"`
	TDEE           float64 `json:"tdee"`
	TargetCalories float64 `json:"target_calories"`
	ProteinG       float64 `json:"protein_g"`
	FatG           float64 `json:"fat_g"`
	CarbsG         float64 `json:"carbs_g"`
}

// Normalize приводит строковые поля к нижнему регистру и проверяет диапазоны.
func (r *CalculateRequest) Normalize() error {
	r.Goal = strings.ToLower(strings.TrimSpace(r.Goal))
	r.ActivityLevel = strings.ToLower(strings.TrimSpace(r.ActivityLevel))
	r.Gender = strings.ToLower(strings.TrimSpace(r.Gender))

	if _, ok := goalFactors[r.Goal]; !ok {
		return fmt.Errorf("%w: goal must be one of lose, maintain, gain", ErrInvalidInput)
	}
	if _, ok := activityMultipliers[r.ActivityLevel]; !ok {
		return fmt.Errorf("%w: activity_level must be one of sedentary, light, moderate, active, very_active", ErrInvalidInput)
	}
	if r.Gender != "male" && r.Gender != "female" {
		return fmt.Errorf("%w: gender must be male or female", ErrInvalidInput)
	}
	if r.Age < 14 || r.Age > 100 {
		return fmt.Errorf("%w: age must be between 14 and 100", ErrInvalidInput)
	}
	if !(r.HeightCm >= 100 && r.HeightCm <= 250) {
		return fmt.Errorf("%w: height_cm must be between 100 and 250", ErrInvalidInput)
	}
	if !(r.WeightKg >= 30 && r.WeightKg <= 300) {
		return fmt.Errorf("%w: weight_kg must be between 30 and 300", ErrInvalidInput)
	}
	return nil
}

// Calculate считает BMR по Миффлину-Сан Жеору, TDEE и макросы.
// Запрос должен быть предварительно нормализован.
func Calculate(r CalculateRequest) Targets {
	bmr := 10*r.WeightKg + 6.25*r.HeightCm - 5*float64(r.Age)
	if r.Gender == "female" {
		bmr -= 161
	} else {
		bmr += 5
	}

	tdee := bmr * activityMultipliers[r.ActivityLevel]
	target := tdee * goalFactors[r.Goal]

	proteinPerKg := 1.8
	if r.Goal == GoalLose {
		proteinPerKg = 2.0
	}
	protein := r.WeightKg * proteinPerKg
	fat := target * fatShare / 9
	carbs := math.Max(0, (target-protein*4-fat*9)/4)

	return Targets{
		BMR:            math.Round(bmr),
		TDEE:           math.Round(tdee),
		TargetCalories: math.Round(target),
		ProteinG:       round1(protein),
		FatG:           round1(fat),
		CarbsG:         round1(carbs),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
