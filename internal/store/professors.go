package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

func (s *BaseStore) GetConcerningWords(ctx context.Context, professorID string) ([]string, error) {
	var raw string
	query := s.q(`SELECT concerning_words FROM professors WHERE id = ?`)
	err := s.DB.GetContext(ctx, &raw, query, professorID)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get concerning words: %w", err)
	}

	words := []string{}
	if err := json.Unmarshal([]byte(raw), &words); err != nil {
		return nil, fmt.Errorf("failed to decode concerning words: %w", err)
	}
	return words, nil
}

func (s *BaseStore) SaveConcerningWords(ctx context.Context, professorID string, words []string) error {
	if words == nil {
		words = []string{}
	}
	raw, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("failed to encode concerning words: %w", err)
	}

	query := s.q(`
		INSERT INTO professors (id, concerning_words) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET concerning_words = excluded.concerning_words
	`)
	if _, err := s.DB.ExecContext(ctx, query, professorID, string(raw)); err != nil {
		return fmt.Errorf("failed to save concerning words: %w", err)
	}
	return nil
}
