package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/questfuel/api/llm"
	"github.com/questfuel/api/models"
)

const maxChatMessageLen = 4000

const systemPrompt = `You are QuestFuel's nutrition coach. Answer briefly and practically.
When you recommend a specific food, append it as JSON inside <FOOD_SUGGESTION></FOOD_SUGGESTION> with the keys
name, description, calories, protein, carbs, fat, fiber, servingSize and optionally mealType (breakfast, lunch, dinner or snack).
When you recommend a full meal, append it inside <MEAL_SUGGESTION></MEAL_SUGGESTION> with the same keys plus
ingredients: a list of {name, quantity, unit, calories, protein, carbs, fat} where nutrients are for the stated quantity.
Use one block per suggestion and no other markup inside the blocks.`

// Completer produces the assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// ChatService relays user messages to the assistant and extracts suggestions from replies.
type ChatService struct {
	db          *gorm.DB
	llm         Completer
	extractor   *Extractor
	nutrition   *NutritionService
	historySize int
	log         *zap.Logger
}

func NewChatService(db *gorm.DB, completer Completer, extractor *Extractor, nutrition *NutritionService, historySize int, log *zap.Logger) *ChatService {
	if log == nil {
		log = zap.NewNop()
	}
	if extractor == nil {
		extractor = NewExtractor(log)
	}
	return &ChatService{
		db:          db,
		llm:         completer,
		extractor:   extractor,
		nutrition:   nutrition,
		historySize: historySize,
		log:         log,
	}
}

// ChatReply is the cleaned assistant message and its suggestions.
type ChatReply struct {
	ID          string       `json:"id"`
	Message     string       `json:"message"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Send stores the user's message and the assistant's cleaned reply.
func (s *ChatService) Send(ctx context.Context, userID, text string) (*ChatReply, error) {
	text = cleanText(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if len([]rune(text)) > maxChatMessageLen {
		return nil, fmt.Errorf("%w: message is too long", ErrInvalidInput)
	}

	if s.llm == nil {
		return nil, ErrAssistantUnavailable
	}

	history, err := s.recent(ctx, userID, s.historySize)
	if err != nil {
		return nil, err
	}

	msgs := []llm.Message{{Role: "system", Content: systemPrompt}}
	if c := s.nutritionContext(ctx, userID); c != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: c})
	}
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: models.ChatRoleUser, Content: text})

	raw, err := s.llm.Complete(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssistantUnavailable, err)
	}
	ext := s.extractor.Extract(raw)

	payload, err := json.Marshal(ext.Suggestions)
	if err != nil {
		return nil, err
	}
	userMsg := &models.ChatMessage{UserID: userID, Role: models.ChatRoleUser, Content: text}
	botMsg := &models.ChatMessage{
		UserID:      userID,
		Role:        models.ChatRoleAssistant,
		Content:     ext.Message,
		Suggestions: datatypes.JSON(payload),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		// keep the assistant turn strictly after the user turn
		botMsg.CreatedAt = userMsg.CreatedAt.Add(time.Millisecond)
		return tx.Create(botMsg).Error
	})
	if err != nil {
		return nil, err
	}

	return &ChatReply{ID: botMsg.ID, Message: ext.Message, Suggestions: ext.Suggestions}, nil
}

// History returns up to limit most recent messages, oldest first.
func (s *ChatService) History(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.recent(ctx, userID, limit)
}

func (s *ChatService) recent(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// nutritionContext summarises today's intake for the assistant. Failures only cost context.
func (s *ChatService) nutritionContext(ctx context.Context, userID string) string {
	if s.nutrition == nil {
		return ""
	}
	sum, err := s.nutrition.DaySummary(ctx, userID, "")
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("chat nutrition context unavailable", zap.String("user_id", userID), zap.Error(err))
		}
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "User's intake today (%s): %.0f kcal of %.0f, protein %.0fg of %.0fg, carbs %.0fg of %.0fg, fat %.0fg of %.0fg, fiber %.0fg of %.0fg.",
		sum.Date,
		sum.Totals.Kcal, sum.Goal.TargetKcal,
		sum.Totals.Protein, sum.Goal.TargetProtein,
		sum.Totals.Carbs, sum.Goal.TargetCarbs,
		sum.Totals.Fat, sum.Goal.TargetFat,
		sum.Totals.Fiber, sum.Goal.TargetFiber,
	)
	return b.String()
}
