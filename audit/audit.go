// Package audit holds the attribution, timestamp and soft-delete fields shared by
// every persisted entity, and the ownership predicate used before mutations.
package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/blogplatform-go/apperror"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

// SystemClock is the production clock, truncated to microseconds to match
// postgres timestamptz precision.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Fields is embedded in every entity.
type Fields struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	CreatedBy *int64     `json:"created_by,omitempty"`
	UpdatedBy *int64     `json:"updated_by,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// OnCreate stamps a new entity. actor is nil for self-registration.
func (f *Fields) OnCreate(actor *int64, now time.Time) {
	f.CreatedAt = now
	f.UpdatedAt = now
	f.CreatedBy = actor
	f.UpdatedBy = actor
	f.DeletedAt = nil
}

// OnUpdate records who changed the entity and when.
func (f *Fields) OnUpdate(actor *int64, now time.Time) {
	f.UpdatedAt = now
	f.UpdatedBy = actor
}

// IsDeleted reports whether the entity has been soft deleted.
func (f Fields) IsDeleted() bool {
	return f.DeletedAt != nil
}

// SoftDelete marks the entity deleted. Deleting twice is an AlreadyDeleted error
// and leaves the fields untouched.
func (f *Fields) SoftDelete(actor int64, now time.Time, what string) error {
	if f.DeletedAt != nil {
		return apperror.NewAlreadyDeletedError(what + " is already deleted")
	}
	f.DeletedAt = &now
	f.OnUpdate(&actor, now)
	return nil
}

// Columns lists the audit columns with an optional table alias, in the order
// ScanDest expects.
func Columns(alias string) string {
	cols := []string{"created_at", "updated_at", "created_by", "updated_by", "deleted_at"}
	if alias != "" {
		for i, c := range cols {
			cols[i] = alias + "." + c
		}
	}
	return strings.Join(cols, ", ")
}

// ScanDest returns scan targets matching Columns.
func (f *Fields) ScanDest() []interface{} {
	return []interface{}{&f.CreatedAt, &f.UpdatedAt, &f.CreatedBy, &f.UpdatedBy, &f.DeletedAt}
}

// RequireOwner fails with Forbidden unless actor owns the resource.
func RequireOwner(ownerID, actorID int64, what string) error {
	if ownerID != actorID {
		return apperror.NewForbiddenError(fmt.Sprintf("not allowed to modify this %s", what))
	}
	return nil
}

// Scope controls whether soft-deleted rows are visible to a read.
type Scope struct {
	IncludeDeleted bool
}

// Active is the default scope.
var Active = Scope{}

// Actor returns a pointer suitable for the CreatedBy/UpdatedBy fields.
func Actor(id int64) *int64 {
	return &id
}
