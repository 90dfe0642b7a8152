package services

import "github.com/Czechuuuu/szbi/internal/models"

// Actor is the caller on whose behalf a service call runs. Handlers build it
// once per request and pass it explicitly; a zero Actor is the system.
type Actor struct {
	User        *models.User
	Employee    *models.Employee
	Permissions models.PermissionSet
	IPAddress   string
	UserAgent   string
}

// SystemActor is used for CLI and seed operations.
func SystemActor() Actor {
	return Actor{}
}

// UserID returns the caller's account id, or nil for the system.
func (a Actor) UserID() *uint {
	if a.User == nil {
		return nil
	}
	id := a.User.ID
	return &id
}

// EmployeeID returns the caller's employee id, or nil when unlinked.
func (a Actor) EmployeeID() *uint {
	if a.Employee == nil {
		return nil
	}
	id := a.Employee.ID
	return &id
}

func (a Actor) IsSuperuser() bool {
	return a.User != nil && a.User.IsSuperuser
}

// IsAdmin reports staff or superuser accounts.
func (a Actor) IsAdmin() bool {
	return a.User.IsAdmin()
}

// Can reports whether the caller holds any of perms. Superusers hold all.
func (a Actor) Can(perms ...string) bool {
	if a.IsSuperuser() {
		return true
	}
	return a.Permissions.HasAny(perms...)
}
