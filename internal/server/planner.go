package server

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/julianstephens/keeprun/internal/constants"
	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/habit"
	"github.com/julianstephens/keeprun/internal/models"
	"github.com/julianstephens/keeprun/internal/storage"
	"github.com/julianstephens/keeprun/internal/utils"
	"github.com/julianstephens/keeprun/internal/validation"
)

// PlannerStore is the storage surface behind to-dos, time blocks and evaluations.
type PlannerStore interface {
	storage.TodoQueries
	storage.TimeBlockQueries
	storage.EvaluationQueries
	InTx(ctx context.Context, fn func(storage.Queries) error) error
}

// PlannerHandler serves the daily planner: to-dos, time blocks and evaluations.
type PlannerHandler struct {
	store     PlannerStore
	settings  habit.SettingsSource
	clock     utils.Clock
	validator *validation.Validator
}

func NewPlannerHandler(store PlannerStore, settings habit.SettingsSource, clock utils.Clock) *PlannerHandler {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &PlannerHandler{store: store, settings: settings, clock: clock, validator: validation.New()}
}

// day resolves a YYYY-MM-DD query value, defaulting to the caller's logical today.
func (h *PlannerHandler) day(ctx context.Context, userID, raw string) (string, error) {
	if raw != "" {
		if _, err := utils.ParseDay(raw); err != nil {
			return "", apperrors.New(apperrors.KindValidation, "invalid date %q (expected YYYY-MM-DD)", raw)
		}
		return raw, nil
	}
	s, err := h.settings.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	today, err := utils.TodayForSettings(h.clock, s)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindValidation, err, "invalid day settings")
	}
	return today, nil
}

type todoRequest struct {
	Title    *string             `json:"title"`
	Kind     *constants.TodoKind `json:"kind"`
	Date     *string             `json:"date"`
	Weekdays *[]time.Weekday     `json:"weekdays"`
}

func (r todoRequest) apply(t *models.Todo) {
	if r.Title != nil {
		t.Title = strings.TrimSpace(*r.Title)
	}
	if r.Kind != nil {
		t.Kind = *r.Kind
	}
	if r.Date != nil {
		t.Date = *r.Date
	}
	if r.Weekdays != nil {
		t.Weekdays = *r.Weekdays
	}
	// Each kind carries only its own schedule
	switch t.Kind {
	case constants.TodoKindSpot:
		t.Weekdays = nil
	case constants.TodoKindRoutine:
		t.Date = ""
	}
}

func (h *PlannerHandler) ListTodos(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)
	day, err := h.day(ctx, userID, c.Query("date"))
	if err != nil {
		RespondError(c, err)
		return
	}
	todos, err := h.store.ListTodos(ctx, userID, day)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"date": day, "todos": todos})
}

func (h *PlannerHandler) CreateTodo(c *gin.Context) {
	var req todoRequest
	if !bindJSON(c, &req) {
		return
	}

	now := h.clock.Now()
	todo := models.Todo{ID: uuid.New().String(), UserID: currentUser(c), CreatedAt: now, UpdatedAt: now}
	req.apply(&todo)
	if err := todo.Validate(); err != nil {
		RespondError(c, apperrors.New(apperrors.KindValidation, "%s", err.Error()))
		return
	}

	if err := h.store.AddTodo(c.Request.Context(), todo); err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, todo)
}

func (h *PlannerHandler) UpdateTodo(c *gin.Context) {
	var req todoRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	todo, err := h.store.GetTodo(ctx, currentUser(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	req.apply(&todo)
	todo.UpdatedAt = h.clock.Now()
	if err := todo.Validate(); err != nil {
		RespondError(c, apperrors.New(apperrors.KindValidation, "%s", err.Error()))
		return
	}

	if err := h.store.UpdateTodo(ctx, todo); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, todo)
}

type checkRequest struct {
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}

func (h *PlannerHandler) CheckTodo(c *gin.Context) {
	var req checkRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	userID := currentUser(c)
	todo, err := h.store.GetTodo(ctx, userID, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	day, err := h.day(ctx, userID, req.Date)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !todo.IsDueOn(day) {
		RespondError(c, apperrors.New(apperrors.KindValidation, "todo is not scheduled on %s", day))
		return
	}

	if err := h.store.SetTodoCheck(ctx, todo.ID, day, req.Completed); err != nil {
		RespondError(c, err)
		return
	}
	todo.Completed = req.Completed
	RespondOK(c, gin.H{"date": day, "todo": todo})
}

func (h *PlannerHandler) DeleteTodo(c *gin.Context) {
	if err := h.store.DeleteTodo(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

type timeBlockRequest struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
	Title string `json:"title"`
	Color string `json:"color"`
}

func (h *PlannerHandler) ListTimeBlocks(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)
	day, err := h.day(ctx, userID, c.Query("date"))
	if err != nil {
		RespondError(c, err)
		return
	}
	blocks, err := h.store.ListTimeBlocks(ctx, userID, day)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"date": day, "time_blocks": blocks})
}

// place validates block against the rest of its day and writes it in one transaction.
func (h *PlannerHandler) place(ctx context.Context, block models.TimeBlock, create bool) error {
	return h.store.InTx(ctx, func(q storage.Queries) error {
		existing, err := q.ListTimeBlocks(ctx, block.UserID, block.Date)
		if err != nil {
			return err
		}
		if err := h.validator.CheckPlacement(existing, block); err != nil {
			return err
		}
		if create {
			return q.AddTimeBlock(ctx, block)
		}
		return q.UpdateTimeBlock(ctx, block)
	})
}

func (h *PlannerHandler) CreateTimeBlock(c *gin.Context) {
	var req timeBlockRequest
	if !bindJSON(c, &req) {
		return
	}

	now := h.clock.Now()
	block := models.TimeBlock{
		ID:        uuid.New().String(),
		UserID:    currentUser(c),
		Date:      req.Date,
		Start:     req.Start,
		End:       req.End,
		Title:     strings.TrimSpace(req.Title),
		Color:     req.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.place(c.Request.Context(), block, true); err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, block)
}

func (h *PlannerHandler) UpdateTimeBlock(c *gin.Context) {
	var req timeBlockRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	block, err := h.store.GetTimeBlock(ctx, currentUser(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	block.Date = req.Date
	block.Start = req.Start
	block.End = req.End
	block.Title = strings.TrimSpace(req.Title)
	block.Color = req.Color
	block.UpdatedAt = h.clock.Now()

	if err := h.place(ctx, block, false); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, block)
}

func (h *PlannerHandler) DeleteTimeBlock(c *gin.Context) {
	if err := h.store.DeleteTimeBlock(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

const defaultEvaluationWindow = 30

func (h *PlannerHandler) ListEvaluations(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)
	to, err := h.day(ctx, userID, c.Query("to"))
	if err != nil {
		RespondError(c, err)
		return
	}
	from := c.Query("from")
	if from == "" {
		from, err = utils.AddDays(to, -(defaultEvaluationWindow - 1))
	} else if _, perr := utils.ParseDay(from); perr != nil {
		err = apperrors.New(apperrors.KindValidation, "invalid date %q (expected YYYY-MM-DD)", from)
	}
	if err != nil {
		RespondError(c, err)
		return
	}
	if from > to {
		RespondError(c, apperrors.New(apperrors.KindValidation, "from must not be after to"))
		return
	}

	evals, err := h.store.ListEvaluations(ctx, userID, from, to)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"from": from, "to": to, "evaluations": evals})
}

type evaluationRequest struct {
	Rating int    `json:"rating"`
	Note   string `json:"note"`
}

func (h *PlannerHandler) PutEvaluation(c *gin.Context) {
	var req evaluationRequest
	if !bindJSON(c, &req) {
		return
	}

	eval := models.Evaluation{
		UserID: currentUser(c),
		Date:   c.Param("date"),
		Rating: req.Rating,
		Note:   strings.TrimSpace(req.Note),
	}
	if err := eval.Validate(); err != nil {
		RespondError(c, apperrors.New(apperrors.KindValidation, "%s", err.Error()))
		return
	}

	saved, err := h.store.UpsertEvaluation(c.Request.Context(), eval)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, saved)
}
