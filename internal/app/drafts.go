package app

import (
	"context"
	"errors"
	"strings"

	"github.com/ioezgamer/studio/internal/drafts"
	"github.com/ioezgamer/studio/internal/rbac"
	"github.com/ioezgamer/studio/internal/store"
)

// SuggestTasks and CheckRelevance are not gated; they never fail.
func (s *Service) SuggestTasks(ctx context.Context, equipmentType string) []string {
	return s.assistant.SuggestTasks(ctx, equipmentType)
}

func (s *Service) CheckRelevance(ctx context.Context, equipmentType, taskDescription string) store.Relevance {
	return s.assistant.CheckRelevance(ctx, equipmentType, taskDescription)
}

// CreateDraft opens an in-progress record for actorID. Drafts only lead to a
// create, so they need the same role.
func (s *Service) CreateDraft(ctx context.Context, actorID, equipmentType string) (drafts.Draft, error) {
	if err := s.authorize(ctx, actorID, rbac.ActionWrite); err != nil {
		return drafts.Draft{}, err
	}
	if strings.TrimSpace(equipmentType) == "" {
		return drafts.Draft{}, validationError("El tipo de equipo es obligatorio.")
	}
	return s.drafts.Create(actorID, equipmentType), nil
}

func (s *Service) GetDraft(actorID, draftID string) (drafts.Draft, error) {
	d, err := s.drafts.Get(actorID, draftID)
	return d, draftError(err)
}

func (s *Service) AddDraftTask(actorID, draftID, description string) (drafts.Task, error) {
	task, err := s.drafts.AddTask(actorID, draftID, description)
	return task, draftError(err)
}

func (s *Service) RemoveDraftTask(actorID, draftID, taskID string) error {
	return draftError(s.drafts.RemoveTask(actorID, draftID, taskID))
}

// DiscardDraft drops the draft; verdicts still in flight are cancelled and
// never applied.
func (s *Service) DiscardDraft(actorID, draftID string) error {
	return draftError(s.drafts.Discard(actorID, draftID))
}

// CommitDraft creates a record from the draft's tasks with whatever verdicts
// have arrived, then discards the draft. Pending tasks are saved without a
// verdict.
func (s *Service) CommitDraft(ctx context.Context, actorID, draftID string, input RecordInput) (RecordView, error) {
	d, err := s.drafts.Get(actorID, draftID)
	if err != nil {
		return RecordView{}, draftError(err)
	}
	if strings.TrimSpace(input.Equipment) == "" {
		input.Equipment = d.EquipmentType
	}
	input.Tasks = make([]store.Task, 0, len(d.Tasks))
	for _, task := range d.Tasks {
		input.Tasks = append(input.Tasks, store.Task{Description: task.Description, Relevance: task.Relevance})
	}

	view, err := s.CreateRecord(ctx, input, actorID)
	if err != nil {
		return RecordView{}, err
	}
	if err := s.drafts.Discard(actorID, draftID); err != nil && !errors.Is(err, drafts.ErrNotFound) {
		return view, draftError(err)
	}
	return view, nil
}

func draftError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, drafts.ErrNotFound):
		return notFound("El borrador no existe o expiró.")
	case errors.Is(err, drafts.ErrTaskNotFound):
		return notFound("La tarea no existe en el borrador.")
	case errors.Is(err, drafts.ErrEmptyTask):
		return validationError("La descripción de la tarea es obligatoria.")
	default:
		return err
	}
}
