package ai

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const advisorSystemInstruction = "You are a helpful insurance advisor for retail customers in India. " +
	"Answer in plain language, keep replies short, and never invent policy terms. " +
	"When a question needs a licensed professional, say so."

func summarizeConcernPrompt(text string) string {
	return fmt.Sprintf(`Summarize the following insurance concern in one or two sentences a broker can scan quickly, and classify it into a short category such as "Health Insurance", "Motor Insurance", "Life Insurance", "Claims" or "General".

Concern:
%s`, text)
}

func suggestTopicsPrompt(path, exclude []string) string {
	var b strings.Builder
	b.WriteString("A customer is narrowing down an insurance concern by picking topics.\n")
	if len(path) == 0 {
		b.WriteString("They have not picked anything yet. Suggest broad insurance concern areas.\n")
	} else {
		b.WriteString("Topics picked so far, in order: ")
		b.WriteString(strings.Join(path, " > "))
		b.WriteString("\nSuggest more specific sub-topics under the last pick.\n")
	}
	if len(exclude) > 0 {
		b.WriteString("Do not repeat any of these already-shown topics: ")
		b.WriteString(strings.Join(exclude, "; "))
		b.WriteString("\n")
	}
	b.WriteString("Return at most 6 short topic labels.")
	return b.String()
}

func draftFromPathPrompt(path []string) string {
	return fmt.Sprintf(`Write a short first-person concern statement an insurance customer could post, based on this topic path: %s. Two or three sentences, plain language, no greeting.`,
		strings.Join(path, " > "))
}

func moderatePostPrompt(content string) string {
	return fmt.Sprintf(`Decide whether this community post belongs on an insurance discussion board. It is related if it concerns insurance, claims, policies, premiums, agents, brokers or financial protection.

Post:
%s`, content)
}

func analyzeClaimPrompt(description string) string {
	return fmt.Sprintf(`You are assisting an insurance claims desk. Assess the damage described below (a photo may be attached), estimate severity as LOW, MEDIUM or HIGH, and recommend a next step for the claims team.

Description:
%s`, description)
}

func extractPolicyPrompt() string {
	return "Extract the policy details from this insurance document image. " +
		"Use empty strings for fields that are not visible. Do not guess."
}

func securityTipPrompt() string {
	return "Give one practical tip, in a single sentence, that helps an insurance customer in India avoid fraud or protect their policy. No preamble."
}

func advisorPrompt(history []AdvisorTurn, message string) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString(turn.Sender)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(message)
	return b.String()
}

func concernSummarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":  {Type: genai.TypeString},
			"category": {Type: genai.TypeString},
		},
		Required: []string{"summary", "category"},
	}
}

func topicListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"topics": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"topics"},
	}
}

func moderationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"isRelated": {Type: genai.TypeBoolean},
			"reason":    {Type: genai.TypeString},
		},
		Required: []string{"isRelated"},
	}
}

func claimAnalysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"damageAssessment":  {Type: genai.TypeString},
			"estimatedSeverity": {Type: genai.TypeString},
			"recommendation":    {Type: genai.TypeString},
		},
		Required: []string{"damageAssessment", "estimatedSeverity", "recommendation"},
	}
}

func policyDetailsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"provider":       {Type: genai.TypeString},
			"policyNumber":   {Type: genai.TypeString},
			"policyType":     {Type: genai.TypeString},
			"coverageAmount": {Type: genai.TypeString},
			"premium":        {Type: genai.TypeString},
			"renewalDate":    {Type: genai.TypeString},
		},
		Required: []string{"provider", "policyNumber", "policyType"},
	}
}
