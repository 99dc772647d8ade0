package validation

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/models"
	"github.com/julianstephens/keeprun/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictOverlappingBlocks ConflictType = "overlapping_blocks"
	ConflictInvalidTime       ConflictType = "invalid_time"
)

// Conflict represents a detected conflict between time blocks
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string
	TimeRange   string
	BlockIDs    []string
}

type ValidationResult struct {
	Conflicts []Conflict
}

func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator checks a day's time blocks for overlaps.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

type span struct {
	block      models.TimeBlock
	start, end int
}

// ValidateTimeBlocks reports malformed blocks and every overlapping pair on
// the same date. Deleted blocks are ignored. Blocks that only touch
// (one ends when the next starts) do not overlap.
func (v *Validator) ValidateTimeBlocks(blocks []models.TimeBlock) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	byDate := make(map[string][]span)
	for _, b := range blocks {
		if b.DeletedAt != nil {
			continue
		}
		start, err1 := utils.ParseTimeToMinutes(b.Start)
		end, err2 := utils.ParseTimeToMinutes(b.End)
		if err1 != nil || err2 != nil || end <= start {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidTime,
				Description: fmt.Sprintf("Time block \"%s\" has an invalid range %s-%s", b.Title, b.Start, b.End),
				Date:        b.Date,
				BlockIDs:    []string{b.ID},
			})
			continue
		}
		byDate[b.Date] = append(byDate[b.Date], span{block: b, start: start, end: end})
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, date := range dates {
		spans := byDate[date]
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

		for i := 0; i < len(spans); i++ {
			for j := i + 1; j < len(spans); j++ {
				a, b := spans[i], spans[j]
				if b.start >= a.end {
					break
				}
				result.Conflicts = append(result.Conflicts, Conflict{
					Type: ConflictOverlappingBlocks,
					Description: fmt.Sprintf("\"%s\" (%s-%s) overlaps \"%s\" (%s-%s) on %s",
						a.block.Title, a.block.Start, a.block.End, b.block.Title, b.block.Start, b.block.End, date),
					Date:      date,
					TimeRange: fmt.Sprintf("%s-%s", b.block.Start, minTime(a.block.End, b.block.End)),
					BlockIDs:  []string{a.block.ID, b.block.ID},
				})
			}
		}
	}

	return result
}

// CheckPlacement returns a Validation error when candidate would overlap one
// of existing. A block with the candidate's id is treated as the version
// being replaced.
func (v *Validator) CheckPlacement(existing []models.TimeBlock, candidate models.TimeBlock) error {
	if err := candidate.Validate(); err != nil {
		return apperrors.New(apperrors.KindValidation, "%s", err.Error())
	}

	blocks := make([]models.TimeBlock, 0, len(existing)+1)
	for _, b := range existing {
		if b.ID == candidate.ID || b.Date != candidate.Date {
			continue
		}
		blocks = append(blocks, b)
	}
	blocks = append(blocks, candidate)

	result := v.ValidateTimeBlocks(blocks)
	for _, c := range result.Conflicts {
		if c.Type != ConflictOverlappingBlocks {
			continue
		}
		for _, id := range c.BlockIDs {
			if id == candidate.ID {
				return apperrors.New(apperrors.KindValidation, "time block overlaps an existing block: %s", c.Description)
			}
		}
	}
	return nil
}

func minTime(a, b string) string {
	if a < b {
		return a
	}
	return b
}
