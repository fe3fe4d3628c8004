// Package service holds the business operations behind the HTTP handlers:
// identity resolution, the social graph, content, notifications and the
// coordinator for multi-record writes.
package service

import "ravencube/internal/models"

// Action names what an actor wants to do with a resource.
type Action string

const (
	ActionDelete Action = "delete"
	ActionUpdate Action = "update"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allowed Decision = iota
	Forbidden
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Forbidden:
		return "forbidden"
	default:
		return "not_found"
	}
}

// Owned is any record with a single owning user. A zero owner means the
// record does not exist.
type Owned interface {
	OwnerID() uint
}

// Authorize is the single ownership check behind every mutating operation.
// Only owners may update or delete what they own.
func Authorize(actorID uint, resource Owned, action Action) Decision {
	if resource == nil {
		return NotFound
	}
	owner := resource.OwnerID()
	if owner == 0 {
		return NotFound
	}
	switch action {
	case ActionDelete, ActionUpdate:
		if actorID != 0 && actorID == owner {
			return Allowed
		}
	}
	return Forbidden
}

// authorizeErr turns a Decision into the error reported to the caller.
func authorizeErr(d Decision, notFoundMsg, forbiddenMsg string) error {
	switch d {
	case Allowed:
		return nil
	case Forbidden:
		return models.NewForbiddenError(forbiddenMsg)
	default:
		return models.NewNotFoundMessage(notFoundMsg)
	}
}
