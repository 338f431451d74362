// Package lifecycle holds the post status state machine and the ownership
// guard every mutation passes through.
package lifecycle

import (
	"fmt"

	"whereismypet/internal/models"
)

// Actor is the caller attempting a mutation.
type Actor struct {
	ID      string
	IsAdmin bool
}

// Owns reports whether the actor created the post.
func (a Actor) Owns(ownerID string) bool {
	return a.ID != "" && a.ID == ownerID
}

// Decision is the outcome of an allowed transition.
type Decision struct {
	From    models.PostStatus
	To      models.PostStatus
	Changed bool
}

// Transition checks whether actor may move a post owned by ownerID from
// current to target. A rejected transition returns an error and must not be
// followed by any write.
func Transition(current, target models.PostStatus, ownerID string, actor Actor) (Decision, error) {
	if !target.Valid() {
		return Decision{}, models.NewValidationError(fmt.Sprintf("unknown status %q", target))
	}
	if !actor.Owns(ownerID) && !actor.IsAdmin {
		return Decision{}, models.NewForbiddenError("only the owner can change this post's status")
	}

	d := Decision{From: current, To: target, Changed: current != target}
	if !d.Changed {
		return d, nil
	}

	switch {
	case current == models.StatusActive && target == models.StatusFound:
		// Only the person who lost or found the pet can resolve the listing.
		if actor.Owns(ownerID) {
			return d, nil
		}
		return Decision{}, models.NewForbiddenError("only the owner can mark this post as found")
	case current == models.StatusFound && target == models.StatusActive:
		// Reopening a resolved listing is an administrative override.
		if actor.IsAdmin {
			return d, nil
		}
		return Decision{}, models.NewValidationError("a found post cannot be reopened")
	default:
		return Decision{}, models.NewValidationError(fmt.Sprintf("transition from %q to %q is not allowed", current, target))
	}
}

// CanEdit guards in-place field edits. Status never freezes fields.
func CanEdit(ownerID string, actor Actor) error {
	if !actor.Owns(ownerID) {
		return models.NewForbiddenError("only the owner can edit this post")
	}
	return nil
}

// CanDelete allows the owner or an administrator.
func CanDelete(ownerID string, actor Actor) error {
	if !actor.Owns(ownerID) && !actor.IsAdmin {
		return models.NewForbiddenError("only the owner or an administrator can delete this post")
	}
	return nil
}
