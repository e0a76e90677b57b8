package email

import (
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "noreply@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "noreply@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderDealAcceptedTemplate(t *testing.T) {
	data := DealData{
		AppName:      "ELIXER",
		UserName:     "Ravi Broker",
		ConcernTitle: "Health claim rejected after surgery",
	}

	html, err := renderTemplate(dealAcceptedEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Ravi Broker") {
		t.Error("template should contain provider name")
	}
	if !strings.Contains(html, "Health claim rejected after surgery") {
		t.Error("template should contain concern title")
	}
	if !strings.Contains(html, "verification") {
		t.Error("template should mention pending verification")
	}
}

func TestRenderDealVerifiedTemplate(t *testing.T) {
	data := DealData{
		AppName:      "ELIXER",
		UserName:     "Priya",
		ConcernTitle: "Motor premium dispute",
		ProviderName: "Ravi Broker",
	}

	html, err := renderTemplate(dealVerifiedEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Priya") {
		t.Error("template should contain user name")
	}
	if !strings.Contains(html, "Motor premium dispute") {
		t.Error("template should contain concern title")
	}
	if !strings.Contains(html, "Ravi Broker") {
		t.Error("template should contain provider name")
	}
}
