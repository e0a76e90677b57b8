package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"elixer/api/internal/ai"
	"elixer/api/internal/search"
	"elixer/api/internal/store"
	"elixer/api/internal/util"
)

// CreatePost publishes a community post. Moderation fails open: if
// the gateway is down the post goes through and only a clear
// off-topic verdict blocks it.
func (s *Service) CreatePost(ctx context.Context, session Session, content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Post content is required", nil)
	}

	moderation, err := s.ai.ModeratePost(ctx, content)
	if err == nil && !moderation.IsRelated {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Posts must relate to insurance", map[string]any{"reason": moderation.Reason})
	}
	if err != nil && !errors.Is(err, ai.ErrUnavailable) {
		log.Printf("post moderation: %v", err)
	}

	item := store.Post{
		ID:         util.NewTimestampID("post"),
		AuthorID:   session.UserID,
		AuthorName: session.UserName,
		AuthorRole: session.Role,
		Content:    content,
	}
	if err := s.store.InsertPost(ctx, item); err != nil {
		return nil, err
	}

	if s.search != nil {
		s.search.IndexPost(search.PostRecord{ID: item.ID, Content: item.Content, AuthorName: item.AuthorName})
	}

	return map[string]any{"post": renderPost(item)}, nil
}

func (s *Service) ListPosts(ctx context.Context, session Session) (map[string]any, error) {
	items, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	rendered := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rendered = append(rendered, renderPost(item))
	}
	return map[string]any{"posts": rendered}, nil
}

// TogglePostLike flips the caller's like and returns the new state.
func (s *Service) TogglePostLike(ctx context.Context, session Session, postID string) (map[string]any, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	liked, err := s.store.TogglePostLike(ctx, postID, session.UserID)
	if err != nil {
		return nil, err
	}
	item, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"liked": liked, "likeCount": item.LikeCount}, nil
}

func (s *Service) AddPostComment(ctx context.Context, session Session, postID, content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Comment content is required", nil)
	}
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	item := store.PostComment{
		ID:         util.NewTimestampID("pcm"),
		PostID:     postID,
		AuthorID:   session.UserID,
		AuthorName: session.UserName,
		AuthorRole: session.Role,
		Content:    content,
	}
	if err := s.store.InsertPostComment(ctx, item); err != nil {
		return nil, err
	}
	return map[string]any{"comment": renderPostComment(item)}, nil
}

func (s *Service) ListPostComments(ctx context.Context, session Session, postID string) (map[string]any, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	items, err := s.store.ListPostComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	rendered := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rendered = append(rendered, renderPostComment(item))
	}
	return map[string]any{"comments": rendered}, nil
}

// ── Claims ──

// FileClaim records a claim, stores the damage photo when object
// storage is configured, and attaches an automated assessment. A
// gateway outage leaves the claim queued for manual review.
func (s *Service) FileClaim(ctx context.Context, session Session, policyID, description string, photo []byte, mimeType string) (map[string]any, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Claim description is required", nil)
	}

	if policyID != "" {
		policy, err := s.store.GetPolicy(ctx, policyID)
		if err != nil || policy.OwnerID != session.UserID {
			return nil, domainError(http.StatusUnprocessableEntity, "INVALID_REFERENCE", "Policy not found for this account", nil)
		}
	}

	claimID := util.NewTimestampID("clm")
	photoObject := ""
	if len(photo) > 0 && s.blobs.Enabled() {
		photoObject = "claims/" + claimID
		if err := s.blobs.Put(ctx, photoObject, photo, mimeType); err != nil {
			log.Printf("claim %s: store photo: %v", claimID, err)
			photoObject = ""
		}
	}

	analysis := "Manual review required."
	if result, err := s.ai.AnalyzeClaim(ctx, description, photo, mimeType); err == nil {
		analysis = result.DamageAssessment
		if result.EstimatedSeverity != "" {
			analysis += " Severity: " + result.EstimatedSeverity + "."
		}
		if result.Recommendation != "" {
			analysis += " " + result.Recommendation
		}
	}

	item := store.Claim{
		ID:          claimID,
		OwnerID:     session.UserID,
		PolicyID:    policyID,
		Description: description,
		PhotoObject: photoObject,
		AIAnalysis:  analysis,
		Status:      "SUBMITTED",
	}
	if err := s.store.InsertClaim(ctx, item); err != nil {
		return nil, err
	}
	return map[string]any{"claim": s.renderClaim(ctx, item)}, nil
}

func (s *Service) ListClaims(ctx context.Context, session Session) (map[string]any, error) {
	items, err := s.store.ListClaimsByOwner(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	rendered := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rendered = append(rendered, s.renderClaim(ctx, item))
	}
	return map[string]any{"claims": rendered}, nil
}

func (s *Service) GetClaim(ctx context.Context, session Session, claimID string) (map[string]any, error) {
	item, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != session.UserID {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return map[string]any{"claim": s.renderClaim(ctx, item)}, nil
}

// ── Policies ──

func (s *Service) ListPolicies(ctx context.Context, session Session) (map[string]any, error) {
	items, err := s.store.ListPoliciesByOwner(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	rendered := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rendered = append(rendered, renderPolicy(item))
	}
	return map[string]any{"policies": rendered}, nil
}

func (s *Service) AddPolicy(ctx context.Context, session Session, input store.Policy) (map[string]any, error) {
	if strings.TrimSpace(input.Provider) == "" || strings.TrimSpace(input.PolicyNumber) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Provider and policy number are required", nil)
	}
	input.ID = util.NewTimestampID("pol")
	input.OwnerID = session.UserID
	if err := s.store.InsertPolicy(ctx, input); err != nil {
		return nil, err
	}
	return map[string]any{"policy": renderPolicy(input)}, nil
}

// ScanPolicy extracts policy details from a document image. There is
// no fallback here; the caller types the details in manually when the
// gateway is down.
func (s *Service) ScanPolicy(ctx context.Context, session Session, image []byte, mimeType string) (map[string]any, error) {
	if len(image) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Document image is required", nil)
	}
	details, err := s.ai.ExtractPolicy(ctx, image, mimeType)
	if err != nil {
		return nil, domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "Document scanning is unavailable, please enter details manually", nil)
	}
	return map[string]any{
		"provider":       details.Provider,
		"policyNumber":   details.PolicyNumber,
		"policyType":     details.PolicyType,
		"coverageAmount": details.CoverageAmount,
		"premium":        details.Premium,
		"renewalDate":    details.RenewalDate,
	}, nil
}

// ── Advisor chat ──

func (s *Service) AdvisorHistory(ctx context.Context, session Session) (map[string]any, error) {
	items, err := s.store.ListAdvisorMessages(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	rendered := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rendered = append(rendered, renderAdvisorMessage(item))
	}
	return map[string]any{"messages": rendered}, nil
}

// SendAdvisorMessage persists the user's message, asks the gateway
// for a reply, and persists that too. An outage yields a canned
// apology rather than an error.
func (s *Service) SendAdvisorMessage(ctx context.Context, session Session, message string) (map[string]any, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Message is required", nil)
	}

	history, err := s.store.ListAdvisorMessages(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	userMsg := store.AdvisorMessage{
		ID:      util.NewTimestampID("adv"),
		UserID:  session.UserID,
		Sender:  "user",
		Content: message,
	}
	if err := s.store.InsertAdvisorMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	turns := make([]ai.AdvisorTurn, 0, len(history))
	for _, item := range history {
		turns = append(turns, ai.AdvisorTurn{Sender: item.Sender, Content: item.Content})
	}

	reply, err := s.ai.AdvisorReply(ctx, turns, message)
	if err != nil || strings.TrimSpace(reply) == "" {
		reply = "The advisor is offline right now. Please try again in a little while, or raise a concern on the marketplace."
	}

	advisorMsg := store.AdvisorMessage{
		ID:      util.NewTimestampID("adv"),
		UserID:  session.UserID,
		Sender:  "advisor",
		Content: reply,
	}
	if err := s.store.InsertAdvisorMessage(ctx, advisorMsg); err != nil {
		return nil, err
	}

	return map[string]any{
		"messages": []map[string]any{
			renderAdvisorMessage(userMsg),
			renderAdvisorMessage(advisorMsg),
		},
	}, nil
}

// SecurityTip returns the home screen fraud awareness tip, with a
// canned tip standing in when the gateway is down.
func (s *Service) SecurityTip(ctx context.Context, session Session) (map[string]any, error) {
	tip, err := s.ai.SecurityTip(ctx)
	if err != nil || strings.TrimSpace(tip) == "" {
		tip = "Never share your policy number or an OTP with unsolicited callers; insurers never ask for them over the phone."
	}
	return map[string]any{"tip": strings.TrimSpace(tip)}, nil
}

// ── Search ──

func (s *Service) Search(ctx context.Context, session Session, q string, filterType string, limit, offset int) (map[string]any, error) {
	if s.search == nil {
		return map[string]any{"results": []any{}, "total": 0, "query": q}, nil
	}
	response := s.search.Search(search.Query{
		Text:       q,
		FilterType: search.ResultType(filterType),
		Limit:      limit,
		Offset:     offset,
	})
	return map[string]any{
		"results": response.Results,
		"total":   response.Total,
		"query":   response.Query,
	}, nil
}

// ── Profile ──

func (s *Service) Profile(ctx context.Context, session Session) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":          user.ID,
		"displayName": user.DisplayName,
		"email":       user.Email,
		"phone":       user.Phone,
		"role":        user.Role,
	}, nil
}

func (s *Service) UpdateContact(ctx context.Context, session Session, phone, emailAddr string) (map[string]any, error) {
	phone = strings.TrimSpace(phone)
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Email is required", nil)
	}
	if err := s.store.UpdateUserContact(ctx, session.UserID, phone, emailAddr); err != nil {
		return nil, err
	}
	return s.Profile(ctx, session)
}

// ── Rendering ──

func renderPost(item store.Post) map[string]any {
	return map[string]any{
		"id":         item.ID,
		"authorName": item.AuthorName,
		"authorRole": item.AuthorRole,
		"content":    item.Content,
		"likeCount":  item.LikeCount,
		"createdAt":  item.CreatedAt.Format(time.RFC3339),
	}
}

func renderPostComment(item store.PostComment) map[string]any {
	return map[string]any{
		"id":         item.ID,
		"authorName": item.AuthorName,
		"authorRole": item.AuthorRole,
		"content":    item.Content,
		"createdAt":  item.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Service) renderClaim(ctx context.Context, item store.Claim) map[string]any {
	payload := map[string]any{
		"id":          item.ID,
		"policyId":    item.PolicyID,
		"description": item.Description,
		"aiAnalysis":  item.AIAnalysis,
		"status":      item.Status,
		"createdAt":   item.CreatedAt.Format(time.RFC3339),
	}
	if item.PhotoObject != "" && s.blobs.Enabled() {
		if url, err := s.blobs.PresignedURL(ctx, item.PhotoObject, 15*time.Minute); err == nil {
			payload["photoUrl"] = url
		}
	}
	return payload
}

func renderPolicy(item store.Policy) map[string]any {
	return map[string]any{
		"id":             item.ID,
		"provider":       item.Provider,
		"policyNumber":   item.PolicyNumber,
		"policyType":     item.PolicyType,
		"coverageAmount": item.CoverageAmount,
		"premium":        item.Premium,
		"renewalDate":    item.RenewalDate,
	}
}

func renderAdvisorMessage(item store.AdvisorMessage) map[string]any {
	return map[string]any{
		"id":        item.ID,
		"sender":    item.Sender,
		"content":   item.Content,
		"createdAt": item.CreatedAt.Format(time.RFC3339),
	}
}
