package command

import (
	"context"
	"time"

	"github.com/rezkam/taskflow/internal/domain"
)

// CreateRule attaches a new recurrence rule to a task owned by the user.
// A task can own at most one rule.
func (s *Service) CreateRule(ctx context.Context, userID, taskID string, in RecurrenceInput) (*domain.RecurrenceRule, error) {
	now := time.Now().UTC()

	var rule *domain.RecurrenceRule
	err := s.repo.Atomic(ctx, func(r Repository) error {
		task, err := r.FindTaskByID(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if task.RecurrenceRuleID != nil {
			return domain.ErrRuleExists
		}

		rule, err = buildRule(task.ID, in, task.DueDate, now)
		if err != nil {
			return err
		}
		if err := r.CreateRule(ctx, rule); err != nil {
			return err
		}

		task.RecurrenceRuleID = &rule.ID
		task.UpdatedAt = now
		return r.UpdateTask(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// GetRule retrieves a rule whose owning task belongs to the user.
func (s *Service) GetRule(ctx context.Context, userID, ruleID string) (*domain.RecurrenceRule, error) {
	return s.repo.FindRuleByID(ctx, userID, ruleID)
}

// PatchRule applies a partial update to a rule owned by the user. Nil patch
// fields are left untouched. This is also the endpoint through which the
// recurring service advances occurrences_generated, base_due_date, and
// deactivates exhausted rules.
func (s *Service) PatchRule(ctx context.Context, userID, ruleID string, patch domain.RulePatch) (*domain.RecurrenceRule, error) {
	var rule *domain.RecurrenceRule
	err := s.repo.Atomic(ctx, func(r Repository) error {
		var err error
		rule, err = r.FindRuleByID(ctx, userID, ruleID)
		if err != nil {
			return err
		}

		if patch.Frequency != nil {
			rule.Frequency = *patch.Frequency
		}
		if patch.EndAfterCount != nil {
			if err := domain.ValidateEndAfterCount(patch.EndAfterCount); err != nil {
				return err
			}
			rule.EndAfterCount = patch.EndAfterCount
		}
		if patch.EndByDate != nil {
			rule.EndByDate = patch.EndByDate
		}
		if patch.OccurrencesGenerated != nil {
			rule.OccurrencesGenerated = *patch.OccurrencesGenerated
		}
		if patch.IsActive != nil {
			rule.IsActive = *patch.IsActive
		}
		if patch.BaseDueDate != nil {
			rule.BaseDueDate = patch.BaseDueDate
		}
		rule.UpdatedAt = time.Now().UTC()

		return r.UpdateRule(ctx, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes a rule owned by the user. Tasks pointing at it are
// detached, not deleted; recurrence simply stops.
func (s *Service) DeleteRule(ctx context.Context, userID, ruleID string) error {
	return s.repo.Atomic(ctx, func(r Repository) error {
		return r.DeleteRule(ctx, userID, ruleID)
	})
}

// upsertRule patches the task's existing rule or creates and attaches one.
// Runs inside the caller's transaction.
func (s *Service) upsertRule(ctx context.Context, r Repository, task *domain.Task, in RecurrenceInput, now time.Time) error {
	if task.RecurrenceRuleID == nil {
		rule, err := buildRule(task.ID, in, task.DueDate, now)
		if err != nil {
			return err
		}
		if err := r.CreateRule(ctx, rule); err != nil {
			return err
		}
		task.RecurrenceRuleID = &rule.ID
		return nil
	}

	rule, err := r.FindRuleByID(ctx, task.UserID, *task.RecurrenceRuleID)
	if err != nil {
		return err
	}

	frequency, err := domain.NewFrequency(in.Frequency)
	if err != nil {
		return err
	}
	if err := domain.ValidateEndAfterCount(in.EndAfterCount); err != nil {
		return err
	}
	rule.Frequency = frequency
	rule.EndAfterCount = in.EndAfterCount
	rule.EndByDate = nil
	if in.EndByDate != "" {
		d, err := domain.ParseDueDate(in.EndByDate)
		if err != nil {
			return err
		}
		rule.EndByDate = &d
	}
	rule.UpdatedAt = now

	return r.UpdateRule(ctx, rule)
}
