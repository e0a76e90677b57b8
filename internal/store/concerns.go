package store

import (
	"context"
	"encoding/json"
	"fmt"
)

func (s *PostgresStore) InsertConcern(ctx context.Context, item Concern) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO concerns (id, owner_id, category, original_text, ai_summary, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.OwnerID, item.Category, item.OriginalText, item.AISummary, item.Status)
	if err != nil {
		return fmt.Errorf("insert concern: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetConcern(ctx context.Context, concernID string) (Concern, error) {
	var item Concern
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, category, original_text, ai_summary, status,
			COALESCE(accepted_comment_id, ''), COALESCE(verified_by, ''), verified_at,
			version, created_at, updated_at
		FROM concerns
		WHERE id=$1
	`, concernID).Scan(&item.ID, &item.OwnerID, &item.Category, &item.OriginalText, &item.AISummary,
		&item.Status, &item.AcceptedCommentID, &item.VerifiedBy, &item.VerifiedAt,
		&item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Concern{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListConcerns(ctx context.Context) ([]Concern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, category, original_text, ai_summary, status,
			COALESCE(accepted_comment_id, ''), COALESCE(verified_by, ''), verified_at,
			version, created_at, updated_at
		FROM concerns
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list concerns: %w", err)
	}
	defer rows.Close()

	items := make([]Concern, 0)
	for rows.Next() {
		var item Concern
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Category, &item.OriginalText, &item.AISummary,
			&item.Status, &item.AcceptedCommentID, &item.VerifiedBy, &item.VerifiedAt,
			&item.Version, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan concern: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concerns: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertConcernComment(ctx context.Context, item ConcernComment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO concern_comments (id, concern_id, author_id, author_name, author_role, content, is_proposal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.ConcernID, item.AuthorID, item.AuthorName, item.AuthorRole, item.Content, item.IsProposal)
	if err != nil {
		return fmt.Errorf("insert concern comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetConcernComment(ctx context.Context, concernID, commentID string) (ConcernComment, error) {
	var item ConcernComment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, concern_id, author_id, author_name, author_role, content, is_proposal, created_at
		FROM concern_comments
		WHERE id=$1 AND concern_id=$2
	`, commentID, concernID).Scan(&item.ID, &item.ConcernID, &item.AuthorID, &item.AuthorName,
		&item.AuthorRole, &item.Content, &item.IsProposal, &item.CreatedAt)
	if err != nil {
		return ConcernComment{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListConcernComments(ctx context.Context, concernID string) ([]ConcernComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, concern_id, author_id, author_name, author_role, content, is_proposal, created_at
		FROM concern_comments
		WHERE concern_id=$1
		ORDER BY created_at ASC
	`, concernID)
	if err != nil {
		return nil, fmt.Errorf("list concern comments: %w", err)
	}
	defer rows.Close()

	items := make([]ConcernComment, 0)
	for rows.Next() {
		var item ConcernComment
		if err := rows.Scan(&item.ID, &item.ConcernID, &item.AuthorID, &item.AuthorName,
			&item.AuthorRole, &item.Content, &item.IsProposal, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan concern comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concern comments: %w", err)
	}
	return items, nil
}

// AcceptConcernDeal moves an OPEN concern to PENDING_VERIFICATION and
// records the accepted comment. The status and version guards in the
// WHERE clause make the transition atomic; a false return means the
// concern changed underneath the caller.
func (s *PostgresStore) AcceptConcernDeal(ctx context.Context, concernID, commentID string, expectedVersion int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE concerns
		SET status='PENDING_VERIFICATION', accepted_comment_id=$2, version=version+1, updated_at=NOW()
		WHERE id=$1 AND status='OPEN' AND version=$3
			AND EXISTS(SELECT 1 FROM concern_comments cc WHERE cc.id=$2 AND cc.concern_id=$1 AND cc.is_proposal)
	`, concernID, commentID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("accept concern deal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("accept concern deal rows: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) VerifyConcernDeal(ctx context.Context, concernID, adminID string, expectedVersion int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE concerns
		SET status='VERIFIED', verified_by=$2, verified_at=NOW(), version=version+1, updated_at=NOW()
		WHERE id=$1 AND status='PENDING_VERIFICATION' AND version=$3
	`, concernID, adminID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("verify concern deal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("verify concern deal rows: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) ResolveConcern(ctx context.Context, concernID string, expectedVersion int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE concerns
		SET status='SOLVED', version=version+1, updated_at=NOW()
		WHERE id=$1 AND status='VERIFIED' AND version=$2
	`, concernID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("resolve concern: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve concern rows: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) InsertConcernEvent(ctx context.Context, event ConcernEvent) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO concern_events (concern_id, event_type, actor_id, actor_name, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, event.ConcernID, event.EventType, event.ActorID, event.ActorName, payloadJSON)
	if err != nil {
		return fmt.Errorf("insert concern event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListConcernEvents(ctx context.Context, concernID string) ([]ConcernEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, concern_id, event_type, actor_id, actor_name, payload, created_at
		FROM concern_events
		WHERE concern_id=$1
		ORDER BY id ASC
	`, concernID)
	if err != nil {
		return nil, fmt.Errorf("list concern events: %w", err)
	}
	defer rows.Close()

	items := make([]ConcernEvent, 0)
	for rows.Next() {
		var item ConcernEvent
		var payloadJSON []byte
		if err := rows.Scan(&item.ID, &item.ConcernID, &item.EventType, &item.ActorID, &item.ActorName, &payloadJSON, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan concern event: %w", err)
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &item.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal event payload: %w", err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concern events: %w", err)
	}
	return items, nil
}
