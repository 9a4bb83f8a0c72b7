package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/questfuel/api/models"
)

// Suggestion variants.
const (
	SuggestionFood = "food"
	SuggestionMeal = "meal"
)

var (
	foodBlockRe = regexp.MustCompile(`(?s)<FOOD_SUGGESTION>(.*?)</FOOD_SUGGESTION>`)
	mealBlockRe = regexp.MustCompile(`(?s)<MEAL_SUGGESTION>(.*?)</MEAL_SUGGESTION>`)
	fenceRe     = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

// FoodSuggestion is a single food the assistant proposes.
type FoodSuggestion struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
	Fiber       float64 `json:"fiber"`
	Sugar       float64 `json:"sugar,omitempty"`
	Sodium      float64 `json:"sodium,omitempty"`
	ServingSize string  `json:"servingSize,omitempty"`
	MealType    string  `json:"mealType,omitempty"`
}

// Ingredient is one component of a meal suggestion.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// MealSuggestion is a multi-ingredient meal the assistant proposes.
type MealSuggestion struct {
	FoodSuggestion
	Ingredients []Ingredient `json:"ingredients"`
}

// Suggestion is the tagged union {type: "food"|"meal", data}.
type Suggestion struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Food returns the payload of a food suggestion.
func (s Suggestion) Food() (*FoodSuggestion, bool) {
	f, ok := s.Data.(*FoodSuggestion)
	return f, ok
}

// Meal returns the payload of a meal suggestion.
func (s Suggestion) Meal() (*MealSuggestion, bool) {
	m, ok := s.Data.(*MealSuggestion)
	return m, ok
}

// UnmarshalJSON restores the typed payload from {type, data}.
func (s *Suggestion) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case SuggestionFood:
		f, err := parseFoodSuggestion(raw.Data)
		if err != nil {
			return err
		}
		*s = Suggestion{Type: SuggestionFood, Data: f}
	case SuggestionMeal:
		m, err := parseMealSuggestion(raw.Data)
		if err != nil {
			return err
		}
		*s = Suggestion{Type: SuggestionMeal, Data: m}
	default:
		return fmt.Errorf("%w: unknown suggestion type %q", ErrMalformedSuggestionPayload, raw.Type)
	}
	return nil
}

// Extraction is the cleaned assistant text and the suggestions pulled out of it.
type Extraction struct {
	Message     string       `json:"message"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Extractor pulls tagged suggestion blocks out of assistant replies. It does no I/O.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor returns an extractor that reports skipped blocks to log. log may be nil.
func NewExtractor(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log}
}

// Extract parses every food block, then every meal block, in text order. Blocks that
// fail validation are logged and dropped. All blocks are removed from the message.
func (e *Extractor) Extract(text string) Extraction {
	out := Extraction{Suggestions: []Suggestion{}}

	for _, m := range foodBlockRe.FindAllStringSubmatch(text, -1) {
		f, err := parseFoodSuggestion([]byte(unfence(m[1])))
		if err != nil {
			e.log.Warn("skipping food suggestion", zap.Error(err))
			continue
		}
		out.Suggestions = append(out.Suggestions, Suggestion{Type: SuggestionFood, Data: f})
	}
	for _, m := range mealBlockRe.FindAllStringSubmatch(text, -1) {
		meal, err := parseMealSuggestion([]byte(unfence(m[1])))
		if err != nil {
			e.log.Warn("skipping meal suggestion", zap.Error(err))
			continue
		}
		out.Suggestions = append(out.Suggestions, Suggestion{Type: SuggestionMeal, Data: meal})
	}

	clean := foodBlockRe.ReplaceAllString(text, "")
	clean = mealBlockRe.ReplaceAllString(clean, "")
	out.Message = strings.TrimSpace(clean)
	return out
}

func unfence(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// wireFood is the accepted input shape; energy may arrive as "calories" or "kcal".
type wireFood struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Calories    *float64 `json:"calories"`
	Kcal        *float64 `json:"kcal"`
	Protein     float64  `json:"protein"`
	Carbs       float64  `json:"carbs"`
	Fat         float64  `json:"fat"`
	Fiber       float64  `json:"fiber"`
	Sugar       float64  `json:"sugar"`
	Sodium      float64  `json:"sodium"`
	ServingSize string   `json:"servingSize"`
	MealType    string   `json:"mealType"`
}

type wireIngredient struct {
	Name     string   `json:"name"`
	Quantity float64  `json:"quantity"`
	Unit     string   `json:"unit"`
	Calories *float64 `json:"calories"`
	Kcal     *float64 `json:"kcal"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`
}

type wireMeal struct {
	wireFood
	Ingredients []wireIngredient `json:"ingredients"`
}

func decodeStrict(b []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSuggestionPayload, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after payload", ErrMalformedSuggestionPayload)
	}
	return nil
}

func parseFoodSuggestion(b []byte) (*FoodSuggestion, error) {
	var w wireFood
	if err := decodeStrict(b, &w); err != nil {
		return nil, err
	}
	return w.validate()
}

func parseMealSuggestion(b []byte) (*MealSuggestion, error) {
	var w wireMeal
	if err := decodeStrict(b, &w); err != nil {
		return nil, err
	}
	f, err := w.wireFood.validate()
	if err != nil {
		return nil, err
	}
	if len(w.Ingredients) == 0 {
		return nil, fmt.Errorf("%w: meal %q has no ingredients", ErrMalformedSuggestionPayload, f.Name)
	}

	meal := &MealSuggestion{FoodSuggestion: *f, Ingredients: make([]Ingredient, 0, len(w.Ingredients))}
	var sum Ingredient
	for _, wi := range w.Ingredients {
		ing := Ingredient{
			Name:     strings.TrimSpace(wi.Name),
			Quantity: wi.Quantity,
			Unit:     strings.TrimSpace(wi.Unit),
			Calories: energy(wi.Calories, wi.Kcal),
			Protein:  wi.Protein,
			Carbs:    wi.Carbs,
			Fat:      wi.Fat,
		}
		if ing.Name == "" {
			return nil, fmt.Errorf("%w: ingredient without name", ErrMalformedSuggestionPayload)
		}
		if anyNegative(ing.Quantity, ing.Calories, ing.Protein, ing.Carbs, ing.Fat) {
			return nil, fmt.Errorf("%w: ingredient %q has negative values", ErrMalformedSuggestionPayload, ing.Name)
		}
		sum.Calories += ing.Calories
		sum.Protein += ing.Protein
		sum.Carbs += ing.Carbs
		sum.Fat += ing.Fat
		meal.Ingredients = append(meal.Ingredients, ing)
	}

	// meal-level totals default to the ingredient sums
	if w.Calories == nil && w.Kcal == nil {
		meal.Calories = sum.Calories
	}
	if meal.Protein == 0 {
		meal.Protein = sum.Protein
	}
	if meal.Carbs == 0 {
		meal.Carbs = sum.Carbs
	}
	if meal.Fat == 0 {
		meal.Fat = sum.Fat
	}
	return meal, nil
}

func (w wireFood) validate() (*FoodSuggestion, error) {
	f := &FoodSuggestion{
		Name:        strings.TrimSpace(w.Name),
		Description: strings.TrimSpace(w.Description),
		Calories:    energy(w.Calories, w.Kcal),
		Protein:     w.Protein,
		Carbs:       w.Carbs,
		Fat:         w.Fat,
		Fiber:       w.Fiber,
		Sugar:       w.Sugar,
		Sodium:      w.Sodium,
		ServingSize: strings.TrimSpace(w.ServingSize),
		MealType:    strings.ToLower(strings.TrimSpace(w.MealType)),
	}
	if f.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrMalformedSuggestionPayload)
	}
	if anyNegative(f.Calories, f.Protein, f.Carbs, f.Fat, f.Fiber, f.Sugar, f.Sodium) {
		return nil, fmt.Errorf("%w: %q has negative nutrients", ErrMalformedSuggestionPayload, f.Name)
	}
	if f.MealType != "" && !models.ValidMealType(f.MealType) {
		return nil, fmt.Errorf("%w: unknown meal type %q", ErrMalformedSuggestionPayload, f.MealType)
	}
	return f, nil
}

func energy(calories, kcal *float64) float64 {
	if calories != nil {
		return *calories
	}
	if kcal != nil {
		return *kcal
	}
	return 0
}

func anyNegative(vs ...float64) bool {
	for _, v := range vs {
		if v < 0 || math.IsNaN(v) {
			return true
		}
	}
	return false
}
