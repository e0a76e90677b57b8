package concern

import (
	"testing"

	"elixer/api/internal/rbac"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{name: "open to pending", from: StatusOpen, to: StatusPendingVerification, ok: true},
		{name: "pending to verified", from: StatusPendingVerification, to: StatusVerified, ok: true},
		{name: "verified to solved", from: StatusVerified, to: StatusSolved, ok: true},
		{name: "open skips to verified", from: StatusOpen, to: StatusVerified, ok: false},
		{name: "pending back to open", from: StatusPendingVerification, to: StatusOpen, ok: false},
		{name: "verified back to open", from: StatusVerified, to: StatusOpen, ok: false},
		{name: "solved is terminal", from: StatusSolved, to: StatusVerified, ok: false},
		{name: "same status", from: StatusOpen, to: StatusOpen, ok: false},
		{name: "unknown status", from: Status("DRAFT"), to: StatusOpen, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.ok {
				t.Fatalf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.ok)
			}
		})
	}
}

func TestCanViewDiscussion(t *testing.T) {
	view := View{OwnerID: "user_owner", Status: StatusOpen}

	cases := []struct {
		name  string
		actor Actor
		ok    bool
	}{
		{name: "owner", actor: Actor{ID: "user_owner", Role: rbac.RoleGeneralUser}, ok: true},
		{name: "admin", actor: Actor{ID: "user_admin", Role: rbac.RoleAdmin}, ok: true},
		{name: "agent", actor: Actor{ID: "user_agent", Role: rbac.RoleAgent}, ok: true},
		{name: "broker", actor: Actor{ID: "user_broker", Role: rbac.RoleBroker}, ok: true},
		{name: "insurance company", actor: Actor{ID: "user_ic", Role: rbac.RoleInsuranceCompany}, ok: true},
		{name: "other general user", actor: Actor{ID: "user_other", Role: rbac.RoleGeneralUser}, ok: false},
		{name: "student", actor: Actor{ID: "user_student", Role: rbac.RoleStudent}, ok: false},
		{name: "regulator", actor: Actor{ID: "user_reg", Role: rbac.RoleRegulator}, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanViewDiscussion(view, tc.actor); got != tc.ok {
				t.Fatalf("CanViewDiscussion = %v, want %v", got, tc.ok)
			}
		})
	}
}

func TestCanCommentClosedWithVerification(t *testing.T) {
	agent := Actor{ID: "user_agent", Role: rbac.RoleAgent}

	if !CanComment(View{OwnerID: "u1", Status: StatusOpen}, agent) {
		t.Fatal("agent should comment on an open concern")
	}
	if !CanComment(View{OwnerID: "u1", Status: StatusPendingVerification}, agent) {
		t.Fatal("discussion stays open while verification is pending")
	}
	if CanComment(View{OwnerID: "u1", Status: StatusVerified}, agent) {
		t.Fatal("no comments on a verified concern")
	}
	if CanComment(View{OwnerID: "u1", Status: StatusSolved}, agent) {
		t.Fatal("no comments on a solved concern")
	}
}

func TestCanPropose(t *testing.T) {
	open := View{OwnerID: "user_owner", Status: StatusOpen}

	if !CanPropose(open, Actor{ID: "user_agent", Role: rbac.RoleAgent}) {
		t.Fatal("agent should propose on an open concern")
	}
	if !CanPropose(open, Actor{ID: "user_broker", Role: rbac.RoleBroker}) {
		t.Fatal("broker should propose on an open concern")
	}
	if CanPropose(open, Actor{ID: "user_owner", Role: rbac.RoleGeneralUser}) {
		t.Fatal("general users do not propose")
	}
	if CanPropose(open, Actor{ID: "user_admin", Role: rbac.RoleAdmin}) {
		t.Fatal("admins do not propose")
	}
	if CanPropose(View{OwnerID: "user_owner", Status: StatusPendingVerification}, Actor{ID: "user_agent", Role: rbac.RoleAgent}) {
		t.Fatal("no proposals once a deal is staged")
	}
	if CanPropose(View{OwnerID: "user_owner", Status: StatusVerified}, Actor{ID: "user_agent", Role: rbac.RoleAgent}) {
		t.Fatal("no proposals on a verified concern")
	}
}

func TestCanAcceptDeal(t *testing.T) {
	owner := Actor{ID: "user_owner", Role: rbac.RoleGeneralUser}
	proposal := CommentView{ID: "cmt_1", AuthorID: "user_agent", IsProposal: true}
	plain := CommentView{ID: "cmt_2", AuthorID: "user_agent", IsProposal: false}

	if !CanAcceptDeal(View{OwnerID: "user_owner", Status: StatusOpen}, proposal, owner) {
		t.Fatal("owner should accept a proposal on an open concern")
	}
	if CanAcceptDeal(View{OwnerID: "user_owner", Status: StatusOpen}, plain, owner) {
		t.Fatal("plain comments cannot be accepted as deals")
	}
	if CanAcceptDeal(View{OwnerID: "user_owner", Status: StatusPendingVerification}, proposal, owner) {
		t.Fatal("only one deal may be pending at a time")
	}
	other := Actor{ID: "user_other", Role: rbac.RoleGeneralUser}
	if CanAcceptDeal(View{OwnerID: "user_owner", Status: StatusOpen}, proposal, other) {
		t.Fatal("only the owner accepts a deal")
	}
	admin := Actor{ID: "user_admin", Role: rbac.RoleAdmin}
	if CanAcceptDeal(View{OwnerID: "user_owner", Status: StatusOpen}, proposal, admin) {
		t.Fatal("admins verify deals, they do not accept them")
	}
}

func TestCanVerifyDeal(t *testing.T) {
	pending := View{OwnerID: "user_owner", Status: StatusPendingVerification}

	if !CanVerifyDeal(pending, Actor{ID: "user_admin", Role: rbac.RoleAdmin}) {
		t.Fatal("admin should verify a pending deal")
	}
	if CanVerifyDeal(pending, Actor{ID: "user_owner", Role: rbac.RoleGeneralUser}) {
		t.Fatal("owner cannot verify their own deal")
	}
	if CanVerifyDeal(pending, Actor{ID: "user_agent", Role: rbac.RoleAgent}) {
		t.Fatal("providers cannot verify deals")
	}
	if CanVerifyDeal(View{OwnerID: "user_owner", Status: StatusOpen}, Actor{ID: "user_admin", Role: rbac.RoleAdmin}) {
		t.Fatal("nothing to verify on an open concern")
	}
}

func TestCanResolve(t *testing.T) {
	verified := View{OwnerID: "user_owner", Status: StatusVerified, AcceptedCommentID: "cmt_1"}

	if !CanResolve(verified, Actor{ID: "user_owner", Role: rbac.RoleGeneralUser}) {
		t.Fatal("owner should mark a verified concern solved")
	}
	if !CanResolve(verified, Actor{ID: "user_admin", Role: rbac.RoleAdmin}) {
		t.Fatal("admin should mark a verified concern solved")
	}
	if CanResolve(verified, Actor{ID: "user_agent", Role: rbac.RoleAgent}) {
		t.Fatal("winning proposer does not close the concern")
	}
	if CanResolve(View{OwnerID: "user_owner", Status: StatusOpen}, Actor{ID: "user_owner", Role: rbac.RoleGeneralUser}) {
		t.Fatal("cannot resolve before verification")
	}
}

func TestCanSeeContact(t *testing.T) {
	accepted := CommentView{ID: "cmt_win", AuthorID: "user_agent", IsProposal: true}
	other := CommentView{ID: "cmt_other", AuthorID: "user_broker", IsProposal: true}
	verified := View{OwnerID: "user_owner", Status: StatusVerified, AcceptedCommentID: "cmt_win"}

	cases := []struct {
		name    string
		view    View
		comment CommentView
		actor   Actor
		ok      bool
	}{
		{name: "winner on accepted comment", view: verified, comment: accepted, actor: Actor{ID: "user_agent", Role: rbac.RoleAgent}, ok: true},
		{name: "owner on accepted comment", view: verified, comment: accepted, actor: Actor{ID: "user_owner", Role: rbac.RoleGeneralUser}, ok: true},
		{name: "admin on accepted comment", view: verified, comment: accepted, actor: Actor{ID: "user_admin", Role: rbac.RoleAdmin}, ok: true},
		{name: "losing proposer on accepted comment", view: verified, comment: accepted, actor: Actor{ID: "user_broker", Role: rbac.RoleBroker}, ok: false},
		{name: "winner on a different comment", view: verified, comment: other, actor: Actor{ID: "user_agent", Role: rbac.RoleAgent}, ok: false},
		{name: "pending verification hides contact", view: View{OwnerID: "user_owner", Status: StatusPendingVerification, AcceptedCommentID: "cmt_win"}, comment: accepted, actor: Actor{ID: "user_agent", Role: rbac.RoleAgent}, ok: false},
		{name: "open concern hides contact", view: View{OwnerID: "user_owner", Status: StatusOpen}, comment: accepted, actor: Actor{ID: "user_agent", Role: rbac.RoleAgent}, ok: false},
		{name: "solved keeps contact visible to winner", view: View{OwnerID: "user_owner", Status: StatusSolved, AcceptedCommentID: "cmt_win"}, comment: accepted, actor: Actor{ID: "user_agent", Role: rbac.RoleAgent}, ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanSeeContact(tc.view, tc.comment, tc.actor); got != tc.ok {
				t.Fatalf("CanSeeContact = %v, want %v", got, tc.ok)
			}
		})
	}
}
