package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"elixer/api/internal/concern"
	"elixer/api/internal/export"
	"elixer/api/internal/rbac"
	"elixer/api/internal/search"
	"elixer/api/internal/store"
	"elixer/api/internal/topics"
	"elixer/api/internal/util"
)

func actorOf(session Session) concern.Actor {
	return concern.Actor{ID: session.UserID, Role: rbac.Role(session.Role)}
}

func viewOf(item store.Concern) concern.View {
	return concern.View{
		OwnerID:           item.OwnerID,
		Status:            concern.Status(item.Status),
		AcceptedCommentID: item.AcceptedCommentID,
	}
}

// SubmitConcern opens a new concern. The owner's raw text stays
// private; only the generated summary and category appear on the
// public card. A gateway outage falls back to the raw text so
// submission never blocks.
func (s *Service) SubmitConcern(ctx context.Context, session Session, text, category, flowID string) (map[string]any, error) {
	if !concern.CanSubmit(actorOf(session)) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only customers can raise concerns", nil)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Concern text is required", nil)
	}

	summary := text
	resolvedCategory := strings.TrimSpace(category)
	generated, err := s.ai.SummarizeConcern(ctx, text)
	if err == nil {
		summary = generated.Summary
		if generated.Category != "" {
			resolvedCategory = generated.Category
		}
	}
	if resolvedCategory == "" {
		resolvedCategory = "General"
	}

	item := store.Concern{
		ID:           util.NewTimestampID("con"),
		OwnerID:      session.UserID,
		Category:     resolvedCategory,
		OriginalText: text,
		AISummary:    summary,
		Status:       string(concern.StatusOpen),
	}
	if err := s.store.InsertConcern(ctx, item); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, item.ID, "concern_created", session, map[string]any{"category": resolvedCategory})
	s.indexConcern(item)

	if flowID != "" && s.drafts != nil {
		s.drafts.Discard(flowID, session.UserID)
	}

	created, err := s.store.GetConcern(ctx, item.ID)
	if err != nil {
		created = item
	}
	return s.renderConcern(ctx, created, session, false)
}

// ListConcerns returns marketplace cards. Every role sees the cards;
// the discussion only travels with the detail endpoint.
func (s *Service) ListConcerns(ctx context.Context, session Session) (map[string]any, error) {
	items, err := s.store.ListConcerns(ctx)
	if err != nil {
		return nil, err
	}
	cards := make([]map[string]any, 0, len(items))
	for _, item := range items {
		cards = append(cards, s.concernCard(item, session))
	}
	return map[string]any{"concerns": cards}, nil
}

// GetConcern returns a concern card, with the discussion thread
// attached when the caller is in its audience.
func (s *Service) GetConcern(ctx context.Context, session Session, concernID string) (map[string]any, error) {
	item, err := s.store.GetConcern(ctx, concernID)
	if err != nil {
		return nil, err
	}
	return s.renderConcern(ctx, item, session, true)
}

// AddComment posts a reply or, for provider-class roles, a proposal.
func (s *Service) AddComment(ctx context.Context, session Session, concernID, content string, isProposal bool) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Comment content is required", nil)
	}

	item, err := s.store.GetConcern(ctx, concernID)
	if err != nil {
		return nil, err
	}

	view := viewOf(item)
	actor := actorOf(session)
	if !concern.CanViewDiscussion(view, actor) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "You are not part of this discussion", nil)
	}
	if !concern.CanComment(view, actor) {
		return nil, domainError(http.StatusConflict, "CONFLICT", "Discussion is closed on a verified concern", nil)
	}
	if isProposal && !concern.CanPropose(view, actor) {
		if !rbac.IsProvider(actor.Role) {
			return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only providers can post proposals", nil)
		}
		return nil, domainError(http.StatusConflict, "CONFLICT", "Proposals are only accepted while a concern is open", nil)
	}

	comment := store.ConcernComment{
		ID:         util.NewTimestampID("cmt"),
		ConcernID:  concernID,
		AuthorID:   session.UserID,
		AuthorName: session.UserName,
		AuthorRole: session.Role,
		Content:    content,
		IsProposal: isProposal,
	}
	if err := s.store.InsertConcernComment(ctx, comment); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, concernID, "comment_added", session, map[string]any{
		"commentId":  comment.ID,
		"isProposal": isProposal,
	})

	return map[string]any{"comment": s.renderComment(ctx, comment, item, session)}, nil
}

// AcceptDeal is step one of accepting a proposal: the preconditions
// are checked and a short-lived confirmation token is handed back.
// Nothing mutates until the token is confirmed.
func (s *Service) AcceptDeal(ctx context.Context, session Session, concernID, commentID string) (map[string]any, error) {
	item, err := s.store.GetConcern(ctx, concernID)
	if err != nil {
		return nil, err
	}
	comment, err := s.store.GetConcernComment(ctx, concernID, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusUnprocessableEntity, "INVALID_REFERENCE", "Comment does not belong to this concern", nil)
		}
		return nil, err
	}

	commentView := concern.CommentView{ID: comment.ID, AuthorID: comment.AuthorID, IsProposal: comment.IsProposal}
	if !concern.CanAcceptDeal(viewOf(item), commentView, actorOf(session)) {
		if item.Status != string(concern.StatusOpen) {
			return nil, domainError(http.StatusConflict, "CONFLICT", "Concern is no longer open", nil)
		}
		if !comment.IsProposal {
			return nil, domainError(http.StatusUnprocessableEntity, "INVALID_REFERENCE", "Only proposal comments can be accepted", nil)
		}
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only the concern owner can accept a proposal", nil)
	}

	token := s.createConfirm(confirmRecord{
		action:    "accept",
		concernID: concernID,
		commentID: commentID,
		actorID:   session.UserID,
		version:   item.Version,
	})

	return map[string]any{
		"confirmToken":     token,
		"expiresInSeconds": int(s.cfg.ConfirmTTL.Seconds()),
		"providerName":     comment.AuthorName,
	}, nil
}

// ConfirmAcceptDeal is step two: the token is consumed and the
// transition applied under the version captured at step one.
func (s *Service) ConfirmAcceptDeal(ctx context.Context, session Session, concernID, confirmToken string) (map[string]any, error) {
	record, ok := s.takeConfirm(confirmToken, "accept", concernID, session.UserID)
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Confirmation expired or invalid, please retry", nil)
	}

	applied, err := s.store.AcceptConcernDeal(ctx, concernID, record.commentID, record.version)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domainError(http.StatusConflict, "CONFLICT", "Concern changed while you were confirming", nil)
	}

	s.recordEvent(ctx, concernID, "deal_accepted", session, map[string]any{"commentId": record.commentID})

	item, err := s.store.GetConcern(ctx, concernID)
	if err != nil {
		return nil, err
	}
	s.indexConcern(item)

	if comment, err := s.store.GetConcernComment(ctx, concernID, record.commentID); err == nil {
		s.notifyDealAccepted(comment, item)
	}

	return s.renderConcern(ctx, item, session, true)
}

// VerifyDeal is step one of admin verification.
func (s *Service) VerifyDeal(ctx context.Context, session Session, concernID string) (map[string]any, error) {
	item, err := s.store.GetConcern(ctx, concernID)
	if err != nil {
		return nil, err
	}

	if !concern.CanVerifyDeal(viewOf(item), actorOf(session)) {
		if !rbac.IsAdmin(rbac.Role(session.Role)) {
			return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only administrators verify deals", nil)
		}
		return nil, domainError(http.StatusConflict, "CONFLICT", "Concern has no deal awaiting verification", nil)
	}

	token := s.createConfirm(confirmRecord{
		action:    "verify",
		concernID: concernID,
		commentID: item.AcceptedCommentID,
		actorID:   session.UserID,
		version:   item.Version,
	})

	return map[string]any{
		"confirmToken":     token,
		"expiresInSeconds": int(s.cfg.ConfirmTTL.Seconds()),
	}, nil
}

// ConfirmVerifyDeal is step two of admin verification. Once applied,
// contact details unlock on the accepted proposal.
func (s *Service) ConfirmVerifyDeal(ctx context.Context, session Session, concernID, confirmToken string) (map[string]any, error) {
	record, ok := s.takeConfirm(confirmToken, "verify", concernID, session.UserID)
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Confirmation expired or invalid, please retry", nil)
	}

	applied, err := s.store.VerifyConcernDeal(ctx, concernID, session.UserID, record.version)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domainError(http.StatusConflict, "CONFLICT", "Concern changed while you were confirming", nil)
	}

	s.recordEvent(ctx, concernID, "deal_verified", session, map[string]any{"commentId": record.commentID})

	item, err := s.store.GetConcern(ctx, concernID)
	if err != nil {
		return nil, err
	}
	s.indexConcern(item)
	s.notifyDealVerified(ctx, item)

	return s.renderConcern(ctx, item, session, true)
}

// ResolveConcern closes out a verified deal. No confirmation step;
// the transition is still guarded by the version counter.
func (s *Service) ResolveConcern(ctx context.Context, session Session, concernID string) (map[string]any, error) {
	item, err := s.store.GetConcern(ctx, concernID)
	if err != nil {
		return nil, err
	}

	if !concern.CanResolve(viewOf(item), actorOf(session)) {
		if item.Status != string(concern.StatusVerified) {
			return nil, domainError(http.StatusConflict, "CONFLICT", "Only verified concerns can be marked solved", nil)
		}
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only the owner or an administrator can mark a concern solved", nil)
	}

	applied, err := s.store.ResolveConcern(ctx, concernID, item.Version)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domainError(http.StatusConflict, "CONFLICT", "Concern changed, please reload", nil)
	}

	s.recordEvent(ctx, concernID, "concern_resolved", session, nil)

	item, err = s.store.GetConcern(ctx, concernID)
	if err != nil {
		return nil, err
	}
	s.indexConcern(item)

	return s.renderConcern(ctx, item, session, true)
}

// ListConcernEvents returns the audit trail. Admin only.
func (s *Service) ListConcernEvents(ctx context.Context, session Session, concernID string) (map[string]any, error) {
	if !rbac.IsAdmin(rbac.Role(session.Role)) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if _, err := s.store.GetConcern(ctx, concernID); err != nil {
		return nil, err
	}

	events, err := s.store.ListConcernEvents(ctx, concernID)
	if err != nil {
		return nil, err
	}
	rendered := make([]map[string]any, 0, len(events))
	for _, event := range events {
		rendered = append(rendered, map[string]any{
			"eventType": event.EventType,
			"actorId":   event.ActorID,
			"actorName": event.ActorName,
			"payload":   event.Payload,
			"createdAt": event.CreatedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{"events": rendered}, nil
}

// ExportDealRecord renders the verified deal to PDF for the parties
// involved in it.
func (s *Service) ExportDealRecord(ctx context.Context, session Session, concernID string) (*export.Result, error) {
	item, err := s.store.GetConcern(ctx, concernID)
	if err != nil {
		return nil, err
	}
	status := concern.Status(item.Status)
	if status != concern.StatusVerified && status != concern.StatusSolved {
		return nil, domainError(http.StatusConflict, "CONFLICT", "Deal record is available after verification", nil)
	}

	comment, err := s.store.GetConcernComment(ctx, concernID, item.AcceptedCommentID)
	if err != nil {
		return nil, err
	}

	actor := actorOf(session)
	allowed := rbac.IsAdmin(actor.Role) || session.UserID == item.OwnerID || session.UserID == comment.AuthorID
	if !allowed {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only the deal parties can export the record", nil)
	}

	record := export.DealRecord{
		ConcernID:    item.ID,
		Category:     item.Category,
		Summary:      item.AISummary,
		Status:       item.Status,
		ProviderName: comment.AuthorName,
		ProviderRole: comment.AuthorRole,
		ProposalText: comment.Content,
	}
	if session.UserID == item.OwnerID || rbac.IsAdmin(actor.Role) {
		record.OriginalText = item.OriginalText
	}
	if owner, err := s.store.GetUserByID(ctx, item.OwnerID); err == nil {
		record.OwnerName = owner.DisplayName
	}
	if item.VerifiedBy != "" {
		record.VerifiedBy = item.VerifiedBy
		if admin, err := s.store.GetUserByID(ctx, item.VerifiedBy); err == nil {
			record.VerifiedBy = admin.DisplayName
		}
	}
	if item.VerifiedAt != nil {
		record.VerifiedAt = item.VerifiedAt.Format("2006-01-02")
	}

	events, err := s.store.ListConcernEvents(ctx, concernID)
	if err == nil {
		for _, event := range events {
			record.Events = append(record.Events, export.DealEvent{
				When:  event.CreatedAt.Format("2006-01-02 15:04"),
				What:  event.EventType,
				Actor: event.ActorName,
			})
		}
	}

	result, err := export.ExportDealPDF(record)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available on this server", nil)
		}
		return nil, err
	}
	return result, nil
}

// ── Guided drafting ──

func (s *Service) StartDraftFlow(ctx context.Context, session Session) (map[string]any, error) {
	if !concern.CanSubmit(actorOf(session)) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only customers draft concerns", nil)
	}
	flow := s.drafts.Start(ctx, session.UserID)
	return renderFlow(flow), nil
}

func (s *Service) SelectDraftTopic(ctx context.Context, session Session, flowID, topic string) (map[string]any, error) {
	flow, err := s.drafts.Select(ctx, flowID, session.UserID, topic)
	if err != nil {
		return nil, mapFlowError(err)
	}
	return renderFlow(flow), nil
}

func (s *Service) RegenerateDraftTopics(ctx context.Context, session Session, flowID string) (map[string]any, error) {
	flow, err := s.drafts.Regenerate(ctx, flowID, session.UserID)
	if err != nil {
		return nil, mapFlowError(err)
	}
	return renderFlow(flow), nil
}

func (s *Service) RestartDraftFlow(ctx context.Context, session Session, flowID string) (map[string]any, error) {
	flow, err := s.drafts.Restart(ctx, flowID, session.UserID)
	if err != nil {
		return nil, mapFlowError(err)
	}
	return renderFlow(flow), nil
}

func (s *Service) DraftConcernText(ctx context.Context, session Session, flowID string) (map[string]any, error) {
	draft, err := s.drafts.Draft(ctx, flowID, session.UserID)
	if err != nil {
		if errors.Is(err, topics.ErrFlowNotFound) {
			return nil, mapFlowError(err)
		}
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return map[string]any{"draft": draft}, nil
}

func mapFlowError(err error) error {
	if errors.Is(err, topics.ErrFlowNotFound) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Draft flow not found", nil)
	}
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
}

func renderFlow(flow topics.Flow) map[string]any {
	return map[string]any{
		"flowId":  flow.ID,
		"path":    flow.Path,
		"options": flow.Options,
	}
}

// ── Rendering ──

// concernCard is the public shape of a concern. The owner is shown as
// Anonymous to everyone but themselves; their real name only surfaces
// through the contact disclosure rule.
func (s *Service) concernCard(item store.Concern, session Session) map[string]any {
	ownerName := "Anonymous"
	if item.OwnerID == session.UserID {
		ownerName = session.UserName
	}
	return map[string]any{
		"id":        item.ID,
		"summary":   item.AISummary,
		"category":  item.Category,
		"status":    item.Status,
		"ownerName": ownerName,
		"isOwner":   item.OwnerID == session.UserID,
		"createdAt": item.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Service) renderConcern(ctx context.Context, item store.Concern, session Session, withDiscussion bool) (map[string]any, error) {
	payload := s.concernCard(item, session)
	actor := actorOf(session)
	view := viewOf(item)

	if item.OwnerID == session.UserID || rbac.IsAdmin(actor.Role) {
		payload["originalText"] = item.OriginalText
	}

	if !withDiscussion || !concern.CanViewDiscussion(view, actor) {
		return map[string]any{"concern": payload}, nil
	}

	comments, err := s.store.ListConcernComments(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	rendered := make([]map[string]any, 0, len(comments))
	for _, comment := range comments {
		rendered = append(rendered, s.renderComment(ctx, comment, item, session))
	}
	payload["discussion"] = rendered
	payload["acceptedCommentId"] = item.AcceptedCommentID

	return map[string]any{"concern": payload}, nil
}

// renderComment attaches the owner's contact details only when the
// disclosure rule allows it for this caller.
func (s *Service) renderComment(ctx context.Context, comment store.ConcernComment, item store.Concern, session Session) map[string]any {
	payload := map[string]any{
		"id":         comment.ID,
		"authorName": comment.AuthorName,
		"authorRole": comment.AuthorRole,
		"content":    comment.Content,
		"isProposal": comment.IsProposal,
		"isAccepted": comment.ID != "" && comment.ID == item.AcceptedCommentID,
		"createdAt":  comment.CreatedAt.Format(time.RFC3339),
	}

	commentView := concern.CommentView{ID: comment.ID, AuthorID: comment.AuthorID, IsProposal: comment.IsProposal}
	if concern.CanSeeContact(viewOf(item), commentView, actorOf(session)) {
		if owner, err := s.store.GetUserByID(ctx, item.OwnerID); err == nil {
			payload["ownerContact"] = map[string]any{
				"name":  owner.DisplayName,
				"phone": owner.Phone,
				"email": owner.Email,
			}
		}
	}
	return payload
}

// ── Side effects ──

func (s *Service) recordEvent(ctx context.Context, concernID, eventType string, session Session, payload map[string]any) {
	err := s.store.InsertConcernEvent(ctx, store.ConcernEvent{
		ConcernID: concernID,
		EventType: eventType,
		ActorID:   session.UserID,
		ActorName: session.UserName,
		Payload:   payload,
	})
	if err != nil {
		log.Printf("concern %s: record %s event: %v", concernID, eventType, err)
	}
}

func (s *Service) indexConcern(item store.Concern) {
	if s.search == nil {
		return
	}
	s.search.IndexConcern(search.ConcernRecord{
		ID:       item.ID,
		Summary:  item.AISummary,
		Category: item.Category,
		Status:   item.Status,
	})
}

func (s *Service) notifyDealAccepted(comment store.ConcernComment, item store.Concern) {
	if !s.SMTPConfigured() {
		return
	}
	go func() {
		provider, err := s.store.GetUserByID(context.Background(), comment.AuthorID)
		if err != nil || provider.Email == "" {
			return
		}
		if err := s.email.SendDealAcceptedEmail(provider.Email, provider.DisplayName, item.AISummary); err != nil {
			log.Printf("concern %s: deal accepted email: %v", item.ID, err)
		}
	}()
}

func (s *Service) notifyDealVerified(ctx context.Context, item store.Concern) {
	if !s.SMTPConfigured() {
		return
	}
	comment, err := s.store.GetConcernComment(ctx, item.ID, item.AcceptedCommentID)
	if err != nil {
		return
	}
	go func() {
		bg := context.Background()
		if owner, err := s.store.GetUserByID(bg, item.OwnerID); err == nil && owner.Email != "" {
			if err := s.email.SendDealVerifiedEmail(owner.Email, owner.DisplayName, item.AISummary, comment.AuthorName); err != nil {
				log.Printf("concern %s: deal verified email to owner: %v", item.ID, err)
			}
		}
		if provider, err := s.store.GetUserByID(bg, comment.AuthorID); err == nil && provider.Email != "" {
			if err := s.email.SendDealVerifiedEmail(provider.Email, provider.DisplayName, item.AISummary, comment.AuthorName); err != nil {
				log.Printf("concern %s: deal verified email to provider: %v", item.ID, err)
			}
		}
	}()
}
