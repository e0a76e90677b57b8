// Package ai wraps the Gemini API behind typed helpers. Every helper
// returns an error rather than a degraded value; callers own the safe
// default so a gateway outage never blocks a user action.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrUnavailable covers both an unconfigured gateway and a failed call.
var ErrUnavailable = errors.New("ai gateway unavailable")

type Service struct {
	client   *genai.Client
	model    string
	proModel string
}

// NewService creates the gateway. An empty API key yields a disabled
// service whose helpers all return ErrUnavailable.
func NewService(ctx context.Context, apiKey, model, proModel string) (*Service, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if proModel == "" {
		proModel = model
	}
	svc := &Service{model: model, proModel: proModel}
	if apiKey == "" {
		return svc, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	svc.client = client
	return svc, nil
}

func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	// *genai.Client does not expose a Close method; nothing to release.
	return nil
}

// generateJSON runs a schema-constrained generation and returns the raw
// JSON text of the first candidate.
func (s *Service) generateJSON(ctx context.Context, model string, parts []*genai.Part, schema *genai.Schema) (string, error) {
	if !s.Enabled() {
		return "", ErrUnavailable
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	resp, err := s.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return text, nil
}

func (s *Service) generateText(ctx context.Context, model string, parts []*genai.Part, systemInstruction string) (string, error) {
	if !s.Enabled() {
		return "", ErrUnavailable
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	resp, err := s.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return text, nil
}

// ConcernSummary is the structured output of SummarizeConcern.
type ConcernSummary struct {
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

func (s *Service) SummarizeConcern(ctx context.Context, text string) (ConcernSummary, error) {
	raw, err := s.generateJSON(ctx, s.model,
		[]*genai.Part{genai.NewPartFromText(summarizeConcernPrompt(text))},
		concernSummarySchema())
	if err != nil {
		return ConcernSummary{}, err
	}
	var out ConcernSummary
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return ConcernSummary{}, fmt.Errorf("%w: decode summary: %v", ErrUnavailable, err)
	}
	if out.Summary == "" {
		return ConcernSummary{}, fmt.Errorf("%w: blank summary", ErrUnavailable)
	}
	return out, nil
}

// SuggestTopics returns follow-up topic options for a drill-down path.
// Topics listed in exclude were already shown and must not repeat.
func (s *Service) SuggestTopics(ctx context.Context, path, exclude []string) ([]string, error) {
	raw, err := s.generateJSON(ctx, s.model,
		[]*genai.Part{genai.NewPartFromText(suggestTopicsPrompt(path, exclude))},
		topicListSchema())
	if err != nil {
		return nil, err
	}
	var out struct {
		Topics []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: decode topics: %v", ErrUnavailable, err)
	}
	if len(out.Topics) == 0 {
		return nil, fmt.Errorf("%w: no topics", ErrUnavailable)
	}
	return out.Topics, nil
}

// DraftFromPath turns a drill-down path into concern draft text.
func (s *Service) DraftFromPath(ctx context.Context, path []string) (string, error) {
	return s.generateText(ctx, s.model,
		[]*genai.Part{genai.NewPartFromText(draftFromPathPrompt(path))},
		"")
}

// Moderation is the structured output of ModeratePost.
type Moderation struct {
	IsRelated bool   `json:"isRelated"`
	Reason    string `json:"reason"`
}

func (s *Service) ModeratePost(ctx context.Context, content string) (Moderation, error) {
	raw, err := s.generateJSON(ctx, s.model,
		[]*genai.Part{genai.NewPartFromText(moderatePostPrompt(content))},
		moderationSchema())
	if err != nil {
		return Moderation{}, err
	}
	var out Moderation
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Moderation{}, fmt.Errorf("%w: decode moderation: %v", ErrUnavailable, err)
	}
	return out, nil
}

// ClaimAnalysis is the structured output of AnalyzeClaim.
type ClaimAnalysis struct {
	DamageAssessment  string `json:"damageAssessment"`
	EstimatedSeverity string `json:"estimatedSeverity"`
	Recommendation    string `json:"recommendation"`
}

// AnalyzeClaim inspects a damage photo plus the claimant's description.
// Image may be nil for a text-only claim.
func (s *Service) AnalyzeClaim(ctx context.Context, description string, image []byte, mimeType string) (ClaimAnalysis, error) {
	parts := []*genai.Part{genai.NewPartFromText(analyzeClaimPrompt(description))}
	if len(image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image, mimeType))
	}
	raw, err := s.generateJSON(ctx, s.proModel, parts, claimAnalysisSchema())
	if err != nil {
		return ClaimAnalysis{}, err
	}
	var out ClaimAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return ClaimAnalysis{}, fmt.Errorf("%w: decode claim analysis: %v", ErrUnavailable, err)
	}
	return out, nil
}

// PolicyDetails is the structured output of ExtractPolicy.
type PolicyDetails struct {
	Provider       string `json:"provider"`
	PolicyNumber   string `json:"policyNumber"`
	PolicyType     string `json:"policyType"`
	CoverageAmount string `json:"coverageAmount"`
	Premium        string `json:"premium"`
	RenewalDate    string `json:"renewalDate"`
}

// ExtractPolicy reads policy details out of a scanned document image.
func (s *Service) ExtractPolicy(ctx context.Context, image []byte, mimeType string) (PolicyDetails, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(extractPolicyPrompt()),
		genai.NewPartFromBytes(image, mimeType),
	}
	raw, err := s.generateJSON(ctx, s.proModel, parts, policyDetailsSchema())
	if err != nil {
		return PolicyDetails{}, err
	}
	var out PolicyDetails
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return PolicyDetails{}, fmt.Errorf("%w: decode policy details: %v", ErrUnavailable, err)
	}
	return out, nil
}

// SecurityTip returns a one-sentence fraud awareness tip for the home
// screen.
func (s *Service) SecurityTip(ctx context.Context) (string, error) {
	return s.generateText(ctx, s.model,
		[]*genai.Part{genai.NewPartFromText(securityTipPrompt())},
		"")
}

// AdvisorReply answers a chat message with prior turns as context.
func (s *Service) AdvisorReply(ctx context.Context, history []AdvisorTurn, message string) (string, error) {
	return s.generateText(ctx, s.model,
		[]*genai.Part{genai.NewPartFromText(advisorPrompt(history, message))},
		advisorSystemInstruction)
}

// AdvisorTurn is one prior exchange in the advisor chat.
type AdvisorTurn struct {
	Sender  string
	Content string
}
