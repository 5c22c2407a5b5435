package report

import (
	"context"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
)

const (
	WordAdd    = "add"
	WordEdit   = "edit"
	WordDelete = "delete"
)

// WordAction edits the professor's list of concerning words. Index addresses
// the word for edit and delete.
type WordAction struct {
	Action string `json:"action" validate:"required,oneof=add edit delete"`
	Word   string `json:"word"`
	Index  *int   `json:"index"`
}

func (a *Assembler) ConcerningWords(ctx context.Context, professorID string) ([]string, error) {
	return a.store.GetConcerningWords(ctx, professorID)
}

func (a *Assembler) UpdateConcerningWords(ctx context.Context, professorID string, act WordAction) ([]string, error) {
	if err := models.Validate(act); err != nil {
		return nil, apperr.FromValidation(err)
	}
	word := strings.TrimSpace(act.Word)

	words, err := a.store.GetConcerningWords(ctx, professorID)
	if err != nil {
		return nil, err
	}

	switch act.Action {
	case WordAdd:
		if word == "" {
			return nil, apperr.Validationf("word is required")
		}
		words = append(words, word)
	case WordEdit:
		if word == "" {
			return nil, apperr.Validationf("word is required")
		}
		i, err := wordIndex(act.Index, len(words))
		if err != nil {
			return nil, err
		}
		words[i] = word
	case WordDelete:
		i, err := wordIndex(act.Index, len(words))
		if err != nil {
			return nil, err
		}
		words = append(words[:i], words[i+1:]...)
	}

	if err := a.store.SaveConcerningWords(ctx, professorID, words); err != nil {
		return nil, err
	}
	logger.Info.Printf("Professor %s concerning words: %s, now %d", professorID, act.Action, len(words))
	return words, nil
}

func wordIndex(index *int, n int) (int, error) {
	if index == nil {
		return 0, apperr.Validationf("index is required")
	}
	if *index < 0 || *index >= n {
		return 0, apperr.Validationf("index %d is out of range", *index)
	}
	return *index, nil
}
