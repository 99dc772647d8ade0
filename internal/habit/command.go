package habit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/keeprun/internal/constants"
	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/models"
)

const (
	CommandCreate   = "create"
	CommandRecord   = "record"
	CommandComplete = "complete"
	CommandReset    = "reset"
)

// Command is one habit action. The set of variants is closed.
type Command interface {
	Type() string
	isCommand()
}

type CreateCommand struct {
	Title      string                  `json:"title"`
	Category   constants.HabitCategory `json:"category"`
	TargetDays int                     `json:"target_days,omitempty"`
}

type RecordCommand struct {
	HabitID   string `json:"habit_id"`
	Completed bool   `json:"completed"`
}

type CompleteCommand struct {
	HabitID string `json:"habit_id"`
}

type ResetCommand struct {
	HabitID string `json:"habit_id"`
}

func (CreateCommand) Type() string   { return CommandCreate }
func (RecordCommand) Type() string   { return CommandRecord }
func (CompleteCommand) Type() string { return CommandComplete }
func (ResetCommand) Type() string    { return CommandReset }

func (CreateCommand) isCommand()   {}
func (RecordCommand) isCommand()   {}
func (CompleteCommand) isCommand() {}
func (ResetCommand) isCommand()    {}

// DecodeCommand reads a {"type": ...} tagged JSON object into its variant.
func DecodeCommand(data []byte) (Command, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "malformed command")
	}

	var cmd Command
	var err error
	switch head.Type {
	case CommandCreate:
		var c CreateCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case CommandRecord:
		var c RecordCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case CommandComplete:
		var c CompleteCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case CommandReset:
		var c ResetCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case "":
		return nil, apperrors.New(apperrors.KindValidation, "command type is required")
	default:
		return nil, apperrors.New(apperrors.KindValidation, "unknown command type %q", head.Type)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "malformed %s command", head.Type)
	}
	return cmd, nil
}

// Outcome is the result of executing a command. Only the fields relevant to
// the command type are set.
type Outcome struct {
	Type    string               `json:"type"`
	Habit   *models.Habit        `json:"habit,omitempty"`
	View    *View                `json:"view,omitempty"`
	History *models.HabitHistory `json:"history,omitempty"`
	Message string               `json:"message,omitempty"`
}

// Execute dispatches cmd to the matching engine operation.
func (e *Engine) Execute(ctx context.Context, userID string, cmd Command) (Outcome, error) {
	switch c := cmd.(type) {
	case CreateCommand:
		h, err := e.CreateHabit(ctx, userID, CreateInput{Title: c.Title, Category: c.Category, TargetDays: c.TargetDays})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: c.Type(), Habit: &h}, nil

	case RecordCommand:
		if c.HabitID == "" {
			return Outcome{}, apperrors.New(apperrors.KindValidation, "habit_id is required")
		}
		res, err := e.RecordCompletion(ctx, userID, c.HabitID, c.Completed)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: c.Type(), View: &res.View, Message: res.Message}, nil

	case CompleteCommand:
		if c.HabitID == "" {
			return Outcome{}, apperrors.New(apperrors.KindValidation, "habit_id is required")
		}
		hist, err := e.CompleteHabit(ctx, userID, c.HabitID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: c.Type(), History: &hist}, nil

	case ResetCommand:
		if c.HabitID == "" {
			return Outcome{}, apperrors.New(apperrors.KindValidation, "habit_id is required")
		}
		res, err := e.ApplyReset(ctx, userID, c.HabitID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: c.Type(), History: &res.History, Message: res.Message}, nil

	case nil:
		return Outcome{}, apperrors.New(apperrors.KindValidation, "command is required")

	default:
		panic(fmt.Sprintf("habit: unhandled command %T", cmd))
	}
}
