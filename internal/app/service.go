// Package app wires the marketplace domain together behind a single
// service and exposes it over HTTP.
package app

import (
	"context"
	"sync"
	"time"

	"elixer/api/internal/ai"
	"elixer/api/internal/auth"
	"elixer/api/internal/authpw"
	"elixer/api/internal/blob"
	"elixer/api/internal/config"
	"elixer/api/internal/email"
	"elixer/api/internal/search"
	"elixer/api/internal/session"
	"elixer/api/internal/store"
	"elixer/api/internal/topics"
	"elixer/api/internal/util"
)

// dataStore is the slice of the Postgres store the service depends on.
type dataStore interface {
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, userID string) (store.User, error)
	UpdateUserContact(ctx context.Context, userID, phone, email string) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	InsertConcern(ctx context.Context, item store.Concern) error
	GetConcern(ctx context.Context, concernID string) (store.Concern, error)
	ListConcerns(ctx context.Context) ([]store.Concern, error)
	InsertConcernComment(ctx context.Context, item store.ConcernComment) error
	GetConcernComment(ctx context.Context, concernID, commentID string) (store.ConcernComment, error)
	ListConcernComments(ctx context.Context, concernID string) ([]store.ConcernComment, error)
	AcceptConcernDeal(ctx context.Context, concernID, commentID string, expectedVersion int64) (bool, error)
	VerifyConcernDeal(ctx context.Context, concernID, adminID string, expectedVersion int64) (bool, error)
	ResolveConcern(ctx context.Context, concernID string, expectedVersion int64) (bool, error)
	InsertConcernEvent(ctx context.Context, event store.ConcernEvent) error
	ListConcernEvents(ctx context.Context, concernID string) ([]store.ConcernEvent, error)

	InsertPost(ctx context.Context, item store.Post) error
	GetPost(ctx context.Context, postID string) (store.Post, error)
	ListPosts(ctx context.Context) ([]store.Post, error)
	TogglePostLike(ctx context.Context, postID, userID string) (bool, error)
	InsertPostComment(ctx context.Context, item store.PostComment) error
	ListPostComments(ctx context.Context, postID string) ([]store.PostComment, error)

	InsertPolicy(ctx context.Context, item store.Policy) error
	ListPoliciesByOwner(ctx context.Context, ownerID string) ([]store.Policy, error)
	GetPolicy(ctx context.Context, policyID string) (store.Policy, error)
	InsertClaim(ctx context.Context, item store.Claim) error
	GetClaim(ctx context.Context, claimID string) (store.Claim, error)
	ListClaimsByOwner(ctx context.Context, ownerID string) ([]store.Claim, error)

	InsertAdvisorMessage(ctx context.Context, item store.AdvisorMessage) error
	ListAdvisorMessages(ctx context.Context, userID string) ([]store.AdvisorMessage, error)
}

// sessionStore is the slice of the Redis refresh-token store the
// service depends on.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

var _ dataStore = (*store.PostgresStore)(nil)
var _ sessionStore = (*session.RedisStore)(nil)

// Session is an authenticated caller.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// confirmRecord is one pending two-step confirmation. The version
// captured at step one is what the eventual update is compared
// against, so anything that touched the concern in between voids the
// token.
type confirmRecord struct {
	action    string
	concernID string
	commentID string
	actorID   string
	version   int64
	expiresAt time.Time
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	authpw   *authpw.Service
	ai       *ai.Service
	drafts   *topics.Manager
	search   *search.Service
	blobs    *blob.Service
	email    *email.Service

	confirmMu sync.Mutex
	confirms  map[string]confirmRecord

	now func() time.Time
}

func New(
	cfg config.Config,
	data dataStore,
	sessions sessionStore,
	authSvc *authpw.Service,
	aiSvc *ai.Service,
	drafts *topics.Manager,
	searchSvc *search.Service,
	blobs *blob.Service,
	emailSvc *email.Service,
) *Service {
	return &Service{
		cfg:      cfg,
		store:    data,
		sessions: sessions,
		authpw:   authSvc,
		ai:       aiSvc,
		drafts:   drafts,
		search:   searchSvc,
		blobs:    blobs,
		email:    emailSvc,
		confirms: make(map[string]confirmRecord),
		now:      time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// CreateSession issues an access/refresh pair for an already
// authenticated user.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	jti := util.NewID("jti")
	expiresAt := s.now().Add(s.cfg.AccessTTL)

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refreshToken := util.NewID("rft") + util.NewID("")
	refreshExpiry := s.now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refreshToken), user, refreshExpiry); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and
// a fresh pair is issued. The user record is re-read so a role change
// takes effect at the next refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	cached, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	_ = s.sessions.RevokeRefreshSession(ctx, tokenHash)

	user, err := s.store.GetUserByID(ctx, cached.ID)
	if err != nil {
		user = cached
	}
	return s.issueSession(ctx, user)
}

// SessionFromToken authenticates a request. The user record is
// re-read on every call so deactivation and role changes apply
// immediately rather than at token expiry.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}

	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// createConfirm stores a pending confirmation and returns its token.
func (s *Service) createConfirm(record confirmRecord) string {
	token := util.NewID("cfm")
	record.expiresAt = s.now().Add(s.cfg.ConfirmTTL)

	s.confirmMu.Lock()
	defer s.confirmMu.Unlock()
	s.purgeConfirmsLocked()
	s.confirms[token] = record
	return token
}

// takeConfirm consumes a confirmation token. Tokens are single use;
// a failed CAS afterwards requires starting over from step one.
func (s *Service) takeConfirm(token, action, concernID, actorID string) (confirmRecord, bool) {
	s.confirmMu.Lock()
	defer s.confirmMu.Unlock()

	record, ok := s.confirms[token]
	if !ok {
		return confirmRecord{}, false
	}
	delete(s.confirms, token)

	if record.action != action || record.concernID != concernID || record.actorID != actorID {
		return confirmRecord{}, false
	}
	if s.now().After(record.expiresAt) {
		return confirmRecord{}, false
	}
	return record, true
}

func (s *Service) purgeConfirmsLocked() {
	now := s.now()
	for token, record := range s.confirms {
		if now.After(record.expiresAt) {
			delete(s.confirms, token)
		}
	}
}
