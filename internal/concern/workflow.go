// Package concern holds the marketplace workflow rules: the concern
// status machine and the permission predicates that gate every
// mutation and every piece of rendered state. Predicates are pure so
// the HTTP layer, the service layer, and tests all consult the same
// policy.
package concern

import "elixer/api/internal/rbac"

type Status string

const (
	StatusOpen                Status = "OPEN"
	StatusPendingVerification Status = "PENDING_VERIFICATION"
	StatusVerified            Status = "VERIFIED"
	StatusSolved              Status = "SOLVED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPendingVerification, StatusVerified, StatusSolved:
		return true
	default:
		return false
	}
}

// rank orders statuses along the forward-only lifecycle.
func rank(s Status) int {
	switch s {
	case StatusOpen:
		return 0
	case StatusPendingVerification:
		return 1
	case StatusVerified:
		return 2
	case StatusSolved:
		return 3
	default:
		return -1
	}
}

// CanTransition reports whether a concern may move from one status to
// the next. Only single forward steps are legal; nothing ever returns
// to OPEN and VERIFIED never regresses.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return rank(to) == rank(from)+1
}

// Actor is the caller identity the predicates decide over.
type Actor struct {
	ID   string
	Role rbac.Role
}

// View is the slice of concern state the predicates need.
type View struct {
	OwnerID           string
	Status            Status
	AcceptedCommentID string
}

// CommentView is the slice of comment state the predicates need.
type CommentView struct {
	ID         string
	AuthorID   string
	IsProposal bool
}

// CanSubmit: only general users open concerns on the marketplace.
func CanSubmit(actor Actor) bool {
	return actor.Role == rbac.RoleGeneralUser
}

// CanViewDiscussion: admins, provider-class actors, and the owner see
// the discussion thread; any other general user does not.
func CanViewDiscussion(view View, actor Actor) bool {
	if rbac.IsAdmin(actor.Role) {
		return true
	}
	if rbac.IsProvider(actor.Role) {
		return true
	}
	return actor.ID == view.OwnerID
}

// CanComment is the same audience as CanViewDiscussion; comments are
// only accepted while the concern has not reached VERIFIED.
func CanComment(view View, actor Actor) bool {
	if view.Status != StatusOpen && view.Status != StatusPendingVerification {
		return false
	}
	return CanViewDiscussion(view, actor)
}

// CanPropose: provider-class actors, and only while the concern is
// still OPEN. Once a deal is staged the proposal window is closed.
func CanPropose(view View, actor Actor) bool {
	return view.Status == StatusOpen && rbac.IsProvider(actor.Role)
}

// CanAcceptDeal: the owner, while OPEN, targeting a proposal comment.
func CanAcceptDeal(view View, comment CommentView, actor Actor) bool {
	return actor.ID == view.OwnerID && view.Status == StatusOpen && comment.IsProposal
}

// CanVerifyDeal: admins only, while a deal awaits verification.
func CanVerifyDeal(view View, actor Actor) bool {
	return rbac.IsAdmin(actor.Role) && view.Status == StatusPendingVerification
}

// CanResolve: the owner (or an admin) closes out a VERIFIED deal.
func CanResolve(view View, actor Actor) bool {
	if view.Status != StatusVerified {
		return false
	}
	return actor.ID == view.OwnerID || rbac.IsAdmin(actor.Role)
}

// CanSeeContact implements the disclosure rule: the owner's contact
// details surface only on the accepted comment of a verified deal, and
// only to the winning proposer, the owner, or an admin.
func CanSeeContact(view View, comment CommentView, actor Actor) bool {
	if view.Status != StatusVerified && view.Status != StatusSolved {
		return false
	}
	if view.AcceptedCommentID == "" || comment.ID != view.AcceptedCommentID {
		return false
	}
	if rbac.IsAdmin(actor.Role) {
		return true
	}
	if actor.ID == view.OwnerID {
		return true
	}
	return actor.ID == comment.AuthorID
}
