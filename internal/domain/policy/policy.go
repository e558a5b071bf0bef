// Package policy is the permission table of the workflow:
// (operation, entity state) -> allowed roles, plus whether the record's
// owner (author, uploader, assigned designer or publisher) may act
// regardless of role.
//
// Look-ups try the exact state first, then the wildcard row.
package policy

import (
	"github.com/xiebiao/pubflow/internal/domain/identity"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

// Operation names a guarded use case.
type Operation string

const (
	CoverRequestCreate     Operation = "cover_request.create"
	CoverRequestView       Operation = "cover_request.view_detail"
	CoverRequestAssign     Operation = "cover_request.assign"
	CoverRequestUpdate     Operation = "cover_request.update"
	CoverRequestWork       Operation = "cover_request.work"
	CoverRequestReview     Operation = "cover_request.review"
	CoverRequestDelete     Operation = "cover_request.delete"
	CoverRequestListOpen   Operation = "cover_request.list_open"
	CoverDesignUpload      Operation = "cover_design.upload"
	CoverDesignView        Operation = "cover_design.view_detail"
	CoverDesignReview      Operation = "cover_design.review"
	CoverDesignActivate    Operation = "cover_design.activate"
	CoverDesignUpdate      Operation = "cover_design.update"
	CoverDesignDelete      Operation = "cover_design.delete"
	CertificateUpload      Operation = "isbn_certificate.upload"
	CertificateView        Operation = "isbn_certificate.view_detail"
	CertificateVerify      Operation = "isbn_certificate.verify"
	CertificateApprove     Operation = "isbn_certificate.approve"
	CertificateReject      Operation = "isbn_certificate.reject"
	CertificateResubmit    Operation = "isbn_certificate.resubmit"
	CertificateDeactivate  Operation = "isbn_certificate.deactivate"
	CertificateDelete      Operation = "isbn_certificate.delete"
	CertificateSearch      Operation = "isbn_certificate.search"
	CertificateAuditLogs   Operation = "isbn_certificate.audit_logs"
	CertificateDownload    Operation = "isbn_certificate.download"
	CertificateStatistics  Operation = "isbn_certificate.statistics"
	IsbnRequestCreate      Operation = "isbn_request.create"
	IsbnRequestView        Operation = "isbn_request.view_detail"
	IsbnRequestAssign      Operation = "isbn_request.assign"
	IsbnRequestProgress    Operation = "isbn_request.progress"
	IsbnRequestComplete    Operation = "isbn_request.complete"
	IsbnRequestCancel      Operation = "isbn_request.cancel"
	IsbnRequestListPending Operation = "isbn_request.list_pending"
)

// AnyState is the wildcard state.
const AnyState = "*"

// Rule is one row of the table.
type Rule struct {
	Roles []identity.Role
	Owner bool // owners pass even without a listed role
}

type key struct {
	op    Operation
	state string
}

var (
	admin          = identity.RoleAdmin
	publisher      = identity.RolePublisher
	editor         = identity.RoleEditor
	author         = identity.RoleAuthor
	designer       = identity.RoleDesigner
	adminPublisher = []identity.Role{admin, publisher}
	reviewers      = []identity.Role{admin, publisher, editor}
)

// CoverDesign and IsbnCertificate rules look alike but differ on purpose:
// certificate approval is narrower than verification, and an ACTIVE cover
// is frozen for everyone but ADMIN.
var table = map[key]Rule{
	{CoverRequestCreate, AnyState}:   {Roles: []identity.Role{author, admin, publisher}},
	{CoverRequestView, AnyState}:     {Roles: adminPublisher, Owner: true},
	{CoverRequestAssign, AnyState}:   {Roles: adminPublisher},
	{CoverRequestUpdate, AnyState}:   {Roles: adminPublisher, Owner: true},
	{CoverRequestWork, AnyState}:     {Owner: true},
	{CoverRequestReview, AnyState}:   {Roles: adminPublisher, Owner: true},
	{CoverRequestDelete, AnyState}:   {Roles: []identity.Role{admin}, Owner: true},
	{CoverRequestListOpen, AnyState}: {Roles: []identity.Role{admin, publisher, designer}},

	{CoverDesignUpload, AnyState}:   {Roles: []identity.Role{author, designer, admin}},
	{CoverDesignView, AnyState}:     {Roles: reviewers, Owner: true},
	{CoverDesignReview, AnyState}:   {Roles: reviewers},
	{CoverDesignActivate, AnyState}: {Roles: []identity.Role{admin, author, publisher}},
	{CoverDesignUpdate, AnyState}:   {Roles: adminPublisher, Owner: true},
	{CoverDesignUpdate, "ACTIVE"}:   {Roles: []identity.Role{admin}},
	{CoverDesignDelete, AnyState}:   {Roles: []identity.Role{admin}, Owner: true},

	{CertificateUpload, AnyState}:      {Roles: []identity.Role{author, publisher, admin}},
	{CertificateView, AnyState}:        {Roles: reviewers, Owner: true},
	{CertificateVerify, AnyState}:      {Roles: reviewers},
	{CertificateApprove, AnyState}:     {Roles: adminPublisher},
	{CertificateReject, AnyState}:      {Roles: reviewers},
	{CertificateResubmit, AnyState}:    {Owner: true},
	{CertificateDeactivate, AnyState}:  {Roles: []identity.Role{admin}},
	{CertificateDelete, AnyState}:      {Roles: []identity.Role{admin}},
	{CertificateDelete, "PENDING"}:     {Roles: []identity.Role{admin}, Owner: true},
	{CertificateSearch, AnyState}:      {Roles: reviewers},
	{CertificateAuditLogs, AnyState}:   {Roles: adminPublisher, Owner: true},
	{CertificateDownload, AnyState}:    {Roles: adminPublisher, Owner: true},
	{CertificateDownload, "VERIFIED"}:  {Roles: identity.AllRoles},
	{CertificateDownload, "APPROVED"}:  {Roles: identity.AllRoles},
	{CertificateStatistics, AnyState}:  {Roles: reviewers},

	{IsbnRequestCreate, AnyState}:      {Roles: []identity.Role{author, admin}},
	{IsbnRequestView, AnyState}:        {Roles: adminPublisher, Owner: true},
	{IsbnRequestAssign, AnyState}:      {Roles: adminPublisher},
	{IsbnRequestProgress, AnyState}:    {Roles: []identity.Role{admin}, Owner: true},
	{IsbnRequestComplete, AnyState}:    {Roles: adminPublisher},
	{IsbnRequestCancel, AnyState}:      {Roles: []identity.Role{admin}, Owner: true},
	{IsbnRequestListPending, AnyState}: {Roles: adminPublisher},
}

// Lookup returns the rule for op in state.
func Lookup(op Operation, state string) (Rule, bool) {
	if r, ok := table[key{op, state}]; ok {
		return r, true
	}
	r, ok := table[key{op, AnyState}]
	return r, ok
}

// Allows reports whether actor may run op on a record in state.
// owners are the ids that count as the record's owner for this operation.
func Allows(op Operation, state string, actor identity.Actor, owners ...uint) bool {
	if actor.IsZero() {
		return false
	}
	rule, ok := Lookup(op, state)
	if !ok {
		return false
	}
	if actor.HasRole(rule.Roles...) {
		return true
	}
	if rule.Owner {
		for _, id := range owners {
			if id != 0 && id == actor.ID {
				return true
			}
		}
	}
	return false
}

// Authorize is Allows returning the error to hand back to the caller.
func Authorize(op Operation, state string, actor identity.Actor, owners ...uint) error {
	if actor.IsZero() {
		return apperrors.ErrUnauthorized
	}
	if !Allows(op, state, actor, owners...) {
		return apperrors.ErrForbidden
	}
	return nil
}

// RolesFor lists the roles of the rule, for messages and docs.
func RolesFor(op Operation, state string) []identity.Role {
	rule, _ := Lookup(op, state)
	return rule.Roles
}
