package store

import "time"

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	Phone                 string
	PasswordHash          string
	Role                  string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	DeactivatedAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Concern struct {
	ID                string
	OwnerID           string
	Category          string
	OriginalText      string
	AISummary         string
	Status            string
	AcceptedCommentID string
	VerifiedBy        string
	VerifiedAt        *time.Time
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ConcernComment struct {
	ID         string
	ConcernID  string
	AuthorID   string
	AuthorName string
	AuthorRole string
	Content    string
	IsProposal bool
	CreatedAt  time.Time
}

// ConcernEvent is an append-only audit record of lifecycle actions.
type ConcernEvent struct {
	ID        int64
	ConcernID string
	EventType string
	ActorID   string
	ActorName string
	Payload   map[string]any
	CreatedAt time.Time
}

type Post struct {
	ID          string
	AuthorID    string
	AuthorName  string
	AuthorRole  string
	Content     string
	LikeCount   int
	CreatedAt   time.Time
}

type PostComment struct {
	ID         string
	PostID     string
	AuthorID   string
	AuthorName string
	AuthorRole string
	Content    string
	CreatedAt  time.Time
}

type Policy struct {
	ID             string
	OwnerID        string
	Provider       string
	PolicyNumber   string
	PolicyType     string
	CoverageAmount string
	Premium        string
	RenewalDate    string
	CreatedAt      time.Time
}

type Claim struct {
	ID          string
	OwnerID     string
	PolicyID    string
	Description string
	PhotoObject string
	AIAnalysis  string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type AdvisorMessage struct {
	ID        string
	UserID    string
	Sender    string
	Content   string
	CreatedAt time.Time
}
