// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/tahcohcat/learnquest/internal/logger"
	"github.com/tahcohcat/learnquest/internal/services"
)

// EngineHandler exposes the progression engine to minigame and UI
// controllers. It is glue only: every rule lives in the services layer.
type EngineHandler struct {
	questions *services.QuestionService
	lessons   *services.LessonService
	badges    *services.BadgeService
	users     *services.UserService
	catalog   *services.CatalogService
	log       *logger.Log
}

func NewEngineHandler(
	questions *services.QuestionService,
	lessons *services.LessonService,
	badges *services.BadgeService,
	users *services.UserService,
	catalog *services.CatalogService,
) *EngineHandler {
	return &EngineHandler{
		questions: questions,
		lessons:   lessons,
		badges:    badges,
		users:     users,
		catalog:   catalog,
		log:       logger.New(),
	}
}

// RegisterRoutes mounts every engine endpoint on the router.
func RegisterRoutes(r *mux.Router,
	questions *services.QuestionService,
	lessons *services.LessonService,
	badges *services.BadgeService,
	users *services.UserService,
	catalog *services.CatalogService,
) *EngineHandler {
	h := NewEngineHandler(questions, lessons, badges, users, catalog)

	r.HandleFunc("/quizzes/{quizID}/questions", h.SelectQuestions).Methods("GET")
	r.HandleFunc("/quizzes/{quizID}/question", h.SelectSingleQuestion).Methods("GET")

	r.HandleFunc("/users", h.CreateUser).Methods("POST")
	r.HandleFunc("/users/{userID}", h.GetUser).Methods("GET")

	r.HandleFunc("/users/{userID}/lessons", h.GetUserLessons).Methods("GET")
	r.HandleFunc("/users/{userID}/lessons/unlock", h.UnlockAllLessons).Methods("POST")
	r.HandleFunc("/users/{userID}/lessons/{lessonID}/eligibility", h.LessonEligibility).Methods("GET")
	r.HandleFunc("/users/{userID}/lessons/{lessonID}/unlock", h.UnlockLesson).Methods("POST")
	r.HandleFunc("/users/{userID}/lessons/{lessonID}/complete", h.CompleteLesson).Methods("POST")
	r.HandleFunc("/users/{userID}/categories/{categoryID}/unlock", h.UnlockCategory).Methods("POST")

	r.HandleFunc("/users/{userID}/badges", h.GetUserBadges).Methods("GET")
	r.HandleFunc("/users/{userID}/badges/check", h.CheckBadges).Methods("POST")
	r.HandleFunc("/users/{userID}/badges/{badgeID}/claim", h.ClaimBadge).Methods("POST")
	r.HandleFunc("/users/{userID}/events", h.GetRecentEvents).Methods("GET")

	r.HandleFunc("/users/{userID}/quizzes/{quizID}/score", h.SaveQuizScore).Methods("POST")
	r.HandleFunc("/users/{userID}/quizzes/{quizID}/stat-bonus", h.GetStatBonus).Methods("GET")
	r.HandleFunc("/users/{userID}/quizzes/{quizID}/stat-bonus", h.GrantStatBonus).Methods("POST")

	r.HandleFunc("/users/{userID}/coins", h.AddCoins).Methods("POST")
	r.HandleFunc("/users/{userID}/energy", h.AddEnergy).Methods("POST")
	r.HandleFunc("/users/{userID}/energy/spend", h.SpendEnergy).Methods("POST")

	r.HandleFunc("/items", h.ListItems).Methods("GET")
	r.HandleFunc("/categories", h.ListCategories).Methods("GET")
	r.HandleFunc("/users/{userID}/items", h.GetUserItems).Methods("GET")
	r.HandleFunc("/users/{userID}/items/{itemID}/grant", h.GrantItem).Methods("POST")
	r.HandleFunc("/users/{userID}/items/{itemID}/consume", h.ConsumeItem).Methods("POST")
	r.HandleFunc("/users/{userID}/items/{itemID}/purchase", h.PurchaseItem).Methods("POST")

	return h
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// GET /api/v1/quizzes/{quizID}/questions?type=Convection&limit=5
func (h *EngineHandler) SelectQuestions(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathInt(r, "quizID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}
	qType := r.URL.Query().Get("type")

	questions, err := h.questions.SelectRandom(quizID, qType, limit)
	if err != nil {
		h.log.WithError(err).Error("question selection failed")
		http.Error(w, "failed to select questions", http.StatusInternalServerError)
		return
	}

	// A short or empty list is valid: the catalog may hold fewer rows
	// than requested
	writeJSON(w, map[string]interface{}{"questions": questions})
}

// GET /api/v1/quizzes/{quizID}/question
func (h *EngineHandler) SelectSingleQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathInt(r, "quizID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	question, err := h.questions.SelectSingle(quizID)
	if err != nil {
		h.log.WithError(err).Error("question selection failed")
		http.Error(w, "failed to select question", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"question": question})
}

// POST /api/v1/users
func (h *EngineHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.CreateUser(req.Name)
	if err != nil {
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// GET /api/v1/users/{userID}
func (h *EngineHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByID(userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	writeJSON(w, user)
}

// GET /api/v1/users/{userID}/lessons
func (h *EngineHandler) GetUserLessons(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lessons, err := h.catalog.GetUserLessons(userID)
	if err != nil {
		http.Error(w, "failed to get lessons", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"lessons": lessons})
}

// GET /api/v1/users/{userID}/lessons/{lessonID}/eligibility
func (h *EngineHandler) LessonEligibility(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	lessonID, err := pathInt(r, "lessonID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok, err := h.lessons.CanUnlockLesson(userID, lessonID)
	if err != nil {
		http.Error(w, "failed to evaluate lesson", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"eligible": ok})
}

// POST /api/v1/users/{userID}/lessons/{lessonID}/unlock
func (h *EngineHandler) UnlockLesson(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	lessonID, err := pathInt(r, "lessonID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.lessons.CheckAndUnlockLesson(userID, lessonID); err != nil {
		http.Error(w, "failed to unlock lesson", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/users/{userID}/lessons/unlock
func (h *EngineHandler) UnlockAllLessons(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.lessons.CheckAndUnlockAllLessons(userID); err != nil {
		http.Error(w, "failed to unlock lessons", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/users/{userID}/lessons/{lessonID}/complete
func (h *EngineHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	lessonID, err := pathInt(r, "lessonID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.lessons.MarkLessonAsCompleted(userID, lessonID); err != nil {
		http.Error(w, "failed to complete lesson", http.StatusInternalServerError)
		return
	}

	// Completing a lesson may satisfy badge predicates
	if err := h.badges.CheckAndUnlockBadges(userID); err != nil {
		h.log.WithError(err).Warn("badge check after lesson completion failed")
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/users/{userID}/categories/{categoryID}/unlock
func (h *EngineHandler) UnlockCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	categoryID, err := pathInt(r, "categoryID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.lessons.UnlockCategoryForUser(userID, categoryID); err != nil {
		http.Error(w, "failed to unlock category", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/users/{userID}/badges
func (h *EngineHandler) GetUserBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	badges, err := h.catalog.GetUserBadges(userID)
	if err != nil {
		http.Error(w, "failed to get badges", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"badges": badges})
}

// POST /api/v1/users/{userID}/badges/check
func (h *EngineHandler) CheckBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.badges.CheckAndUnlockBadges(userID); err != nil {
		http.Error(w, "failed to check badges", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/users/{userID}/badges/{badgeID}/claim
func (h *EngineHandler) ClaimBadge(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	badgeID, err := pathInt(r, "badgeID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		GoldReward int `json:"gold_reward"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.badges.ClaimBadge(userID, badgeID, req.GoldReward); err != nil {
		http.Error(w, "failed to claim badge", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/users/{userID}/events?limit=10
func (h *EngineHandler) GetRecentEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.badges.GetRecentEvents(userID, limit)
	if err != nil {
		http.Error(w, "failed to get events", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"events": events})
}

// POST /api/v1/users/{userID}/quizzes/{quizID}/score
func (h *EngineHandler) SaveQuizScore(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	quizID, err := pathInt(r, "quizID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.users.SaveQuizAndScore(userID, quizID, req.Score); err != nil {
		http.Error(w, "failed to save score", http.StatusInternalServerError)
		return
	}

	// A new attempt may satisfy score-based badge predicates
	if err := h.badges.CheckAndUnlockBadges(userID); err != nil {
		h.log.WithError(err).Warn("badge check after quiz failed")
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/users/{userID}/quizzes/{quizID}/stat-bonus
func (h *EngineHandler) GetStatBonus(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	quizID, err := pathInt(r, "quizID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	received, err := h.users.HasReceivedStatBonus(userID, quizID)
	if err != nil {
		http.Error(w, "failed to check stat bonus", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"received": received})
}

// POST /api/v1/users/{userID}/quizzes/{quizID}/stat-bonus
func (h *EngineHandler) GrantStatBonus(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	quizID, err := pathInt(r, "quizID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.users.MarkStatBonusAsGiven(userID, quizID); err != nil {
		http.Error(w, "failed to mark stat bonus", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *EngineHandler) balanceDelta(w http.ResponseWriter, r *http.Request, apply func(userID, amount int) error) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := apply(userID, req.Amount); err != nil {
		http.Error(w, "failed to update balance", http.StatusInternalServerError)
		return
	}

	user, err := h.users.GetUserByID(userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, user)
}

// POST /api/v1/users/{userID}/coins
func (h *EngineHandler) AddCoins(w http.ResponseWriter, r *http.Request) {
	h.balanceDelta(w, r, h.users.AddCoin)
}

// POST /api/v1/users/{userID}/energy
func (h *EngineHandler) AddEnergy(w http.ResponseWriter, r *http.Request) {
	h.balanceDelta(w, r, h.users.AddEnergy)
}

// POST /api/v1/users/{userID}/energy/spend
func (h *EngineHandler) SpendEnergy(w http.ResponseWriter, r *http.Request) {
	h.balanceDelta(w, r, h.users.SpendEnergy)
}

// GET /api/v1/items
func (h *EngineHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems()
	if err != nil {
		http.Error(w, "failed to list items", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"items": items})
}

// GET /api/v1/categories
func (h *EngineHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories()
	if err != nil {
		http.Error(w, "failed to list categories", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"categories": categories})
}

// GET /api/v1/users/{userID}/items
func (h *EngineHandler) GetUserItems(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := h.users.GetUserItems(userID)
	if err != nil {
		http.Error(w, "failed to get items", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"items": items})
}

// POST /api/v1/users/{userID}/items/{itemID}/grant
func (h *EngineHandler) GrantItem(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	itemID, err := pathInt(r, "itemID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	if err := h.users.GrantItem(userID, itemID, req.Quantity); err != nil {
		http.Error(w, "failed to grant item", http.StatusInternalServerError)
		return
	}

	// One grant may satisfy several lessons' item requirements
	if err := h.lessons.CheckAndUnlockAllLessons(userID); err != nil {
		h.log.WithError(err).Warn("lesson unlock check after grant failed")
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/users/{userID}/items/{itemID}/consume
func (h *EngineHandler) ConsumeItem(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	itemID, err := pathInt(r, "itemID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	consumed, err := h.users.ConsumeItem(userID, itemID)
	if err != nil {
		http.Error(w, "failed to consume item", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"consumed": consumed})
}

// POST /api/v1/users/{userID}/items/{itemID}/purchase
func (h *EngineHandler) PurchaseItem(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	itemID, err := pathInt(r, "itemID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	purchased, err := h.users.PurchaseItem(userID, itemID)
	if err != nil {
		http.Error(w, "failed to purchase item", http.StatusInternalServerError)
		return
	}

	if purchased {
		if err := h.lessons.CheckAndUnlockAllLessons(userID); err != nil {
			h.log.WithError(err).Warn("lesson unlock check after purchase failed")
		}
	}

	writeJSON(w, map[string]bool{"purchased": purchased})
}
