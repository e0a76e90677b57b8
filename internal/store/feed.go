package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) InsertPost(ctx context.Context, item Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, author_name, author_role, content)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.AuthorID, item.AuthorName, item.AuthorRole, item.Content)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPost(ctx context.Context, postID string) (Post, error) {
	var item Post
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.author_id, p.author_name, p.author_role, p.content,
			(SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id),
			p.created_at
		FROM posts p
		WHERE p.id=$1
	`, postID).Scan(&item.ID, &item.AuthorID, &item.AuthorName, &item.AuthorRole, &item.Content, &item.LikeCount, &item.CreatedAt)
	if err != nil {
		return Post{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.author_id, p.author_name, p.author_role, p.content,
			(SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id),
			p.created_at
		FROM posts p
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	items := make([]Post, 0)
	for rows.Next() {
		var item Post
		if err := rows.Scan(&item.ID, &item.AuthorID, &item.AuthorName, &item.AuthorRole, &item.Content, &item.LikeCount, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return items, nil
}

// TogglePostLike flips the caller's like on a post and reports the
// resulting state.
func (s *PostgresStore) TogglePostLike(ctx context.Context, postID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id=$1 AND user_id=$2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("unlike post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlike post rows: %w", err)
	}
	if affected > 0 {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO post_likes (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID); err != nil {
		return false, fmt.Errorf("like post: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) InsertPostComment(ctx context.Context, item PostComment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_comments (id, post_id, author_id, author_name, author_role, content)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.PostID, item.AuthorID, item.AuthorName, item.AuthorRole, item.Content)
	if err != nil {
		return fmt.Errorf("insert post comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPostComments(ctx context.Context, postID string) ([]PostComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, author_id, author_name, author_role, content, created_at
		FROM post_comments
		WHERE post_id=$1
		ORDER BY created_at ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list post comments: %w", err)
	}
	defer rows.Close()

	items := make([]PostComment, 0)
	for rows.Next() {
		var item PostComment
		if err := rows.Scan(&item.ID, &item.PostID, &item.AuthorID, &item.AuthorName, &item.AuthorRole, &item.Content, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post comments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertPolicy(ctx context.Context, item Policy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policies (id, owner_id, provider, policy_number, policy_type, coverage_amount, premium, renewal_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.OwnerID, item.Provider, item.PolicyNumber, item.PolicyType, item.CoverageAmount, item.Premium, item.RenewalDate)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPoliciesByOwner(ctx context.Context, ownerID string) ([]Policy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, provider, policy_number, policy_type, coverage_amount, premium, renewal_date, created_at
		FROM policies
		WHERE owner_id=$1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	items := make([]Policy, 0)
	for rows.Next() {
		var item Policy
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Provider, &item.PolicyNumber, &item.PolicyType,
			&item.CoverageAmount, &item.Premium, &item.RenewalDate, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetPolicy(ctx context.Context, policyID string) (Policy, error) {
	var item Policy
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, provider, policy_number, policy_type, coverage_amount, premium, renewal_date, created_at
		FROM policies
		WHERE id=$1
	`, policyID).Scan(&item.ID, &item.OwnerID, &item.Provider, &item.PolicyNumber, &item.PolicyType,
		&item.CoverageAmount, &item.Premium, &item.RenewalDate, &item.CreatedAt)
	if err != nil {
		return Policy{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertClaim(ctx context.Context, item Claim) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claims (id, owner_id, policy_id, description, photo_object, ai_analysis, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
	`, item.ID, item.OwnerID, item.PolicyID, item.Description, item.PhotoObject, item.AIAnalysis, item.Status)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetClaim(ctx context.Context, claimID string) (Claim, error) {
	var item Claim
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, COALESCE(policy_id, ''), description, photo_object, ai_analysis, status, created_at, updated_at
		FROM claims
		WHERE id=$1
	`, claimID).Scan(&item.ID, &item.OwnerID, &item.PolicyID, &item.Description, &item.PhotoObject,
		&item.AIAnalysis, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Claim{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListClaimsByOwner(ctx context.Context, ownerID string) ([]Claim, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, COALESCE(policy_id, ''), description, photo_object, ai_analysis, status, created_at, updated_at
		FROM claims
		WHERE owner_id=$1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	items := make([]Claim, 0)
	for rows.Next() {
		var item Claim
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.PolicyID, &item.Description, &item.PhotoObject,
			&item.AIAnalysis, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertAdvisorMessage(ctx context.Context, item AdvisorMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO advisor_messages (id, user_id, sender, content)
		VALUES ($1, $2, $3, $4)
	`, item.ID, item.UserID, item.Sender, item.Content)
	if err != nil {
		return fmt.Errorf("insert advisor message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAdvisorMessages(ctx context.Context, userID string) ([]AdvisorMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, sender, content, created_at
		FROM advisor_messages
		WHERE user_id=$1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list advisor messages: %w", err)
	}
	defer rows.Close()

	items := make([]AdvisorMessage, 0)
	for rows.Next() {
		var item AdvisorMessage
		if err := rows.Scan(&item.ID, &item.UserID, &item.Sender, &item.Content, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan advisor message: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate advisor messages: %w", err)
	}
	return items, nil
}
