package services

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/models"
)

// PermissionInput is the editable part of a Permission.
type PermissionInput struct {
	Name        string                    `json:"name" binding:"required,max=100"`
	Description string                    `json:"description"`
	Category    models.PermissionCategory `json:"category" binding:"required"`
}

// GroupInput is the editable part of a PermissionGroup.
type GroupInput struct {
	Name          string `json:"name" binding:"required,max=100"`
	Description   string `json:"description"`
	PermissionIDs []uint `json:"permission_ids"`
}

// PermissionService manages permissions, groups and their assignments, and
// resolves the effective permissions of a caller.
type PermissionService struct {
	db       *gorm.DB
	activity *ActivityService
}

func NewPermissionService(db *gorm.DB, activity *ActivityService) *PermissionService {
	return &PermissionService{db: db, activity: activity}
}

// EmployeeForUser loads the employee linked to userID together with every
// association the resolver walks. It returns nil when the account has no
// employee record.
func (s *PermissionService) EmployeeForUser(userID uint) (*models.Employee, error) {
	q := s.db.Preload("Department").Preload("Positions")
	for _, p := range models.EmployeePermissionPreloads {
		q = q.Preload(p)
	}
	var e models.Employee
	err := q.Where("user_id = ?", userID).Limit(1).Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == 0 {
		return nil, nil
	}
	return &e, nil
}

// LoadEmployee loads an employee by id with the resolver associations.
func (s *PermissionService) LoadEmployee(id uint) (*models.Employee, error) {
	q := s.db.Preload("User").Preload("Department").Preload("Positions")
	for _, p := range models.EmployeePermissionPreloads {
		q = q.Preload(p)
	}
	var e models.Employee
	if err := q.First(&e, id).Error; err != nil {
		return nil, translate(err, ErrEmployeeNotFound)
	}
	return &e, nil
}

// EffectivePermissions returns the union of the employee's three assignment
// paths.
func (s *PermissionService) EffectivePermissions(employeeID uint) (models.PermissionSet, error) {
	e, err := s.LoadEmployee(employeeID)
	if err != nil {
		return nil, err
	}
	return models.ResolvePermissions(e), nil
}

// ActorFor builds the request identity for u. Superusers receive every
// stored permission; accounts without an employee record resolve to none.
func (s *PermissionService) ActorFor(u *models.User) (Actor, error) {
	if u == nil {
		return Actor{}, nil
	}
	employee, err := s.EmployeeForUser(u.ID)
	if err != nil {
		return Actor{}, fmt.Errorf("load employee for user %d: %w", u.ID, err)
	}

	a := Actor{User: u, Employee: employee}
	if u.IsSuperuser {
		var all []models.Permission
		if err := s.db.Find(&all).Error; err != nil {
			return Actor{}, err
		}
		a.Permissions = models.PermissionSet{}
		for _, p := range all {
			a.Permissions[p.ID] = p
		}
		return a, nil
	}
	a.Permissions = models.ResolvePermissions(employee)
	return a, nil
}

// GroupIDs returns the ids of every group reachable from the actor.
func GroupIDs(a Actor) []uint {
	ids := []uint{}
	for id := range models.ResolveGroups(a.Employee) {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Permissions

func (s *PermissionService) ListPermissions(category models.PermissionCategory) ([]models.Permission, error) {
	var perms []models.Permission
	q := s.db.Order("category, name")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	return perms, q.Find(&perms).Error
}

// PermissionsByCategory groups every permission under its category.
func (s *PermissionService) PermissionsByCategory() (map[models.PermissionCategory][]models.Permission, error) {
	perms, err := s.ListPermissions("")
	if err != nil {
		return nil, err
	}
	out := map[models.PermissionCategory][]models.Permission{}
	for _, p := range perms {
		out[p.Category] = append(out[p.Category], p)
	}
	return out, nil
}

func (s *PermissionService) GetPermission(id uint) (*models.Permission, error) {
	var p models.Permission
	if err := s.db.First(&p, id).Error; err != nil {
		return nil, translate(err, ErrPermissionNotFound)
	}
	return &p, nil
}

func validatePermission(in PermissionInput) error {
	v := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "To pole jest wymagane.")
	}
	if !in.Category.Valid() {
		v.Add("category", "Nieprawidłowa kategoria.")
	}
	return v.Err()
}

func (s *PermissionService) CreatePermission(actor Actor, in PermissionInput) (*models.Permission, error) {
	if err := validatePermission(in); err != nil {
		return nil, err
	}
	p := &models.Permission{Name: strings.TrimSpace(in.Name), Description: in.Description, Category: in.Category}
	if err := s.db.Create(p).Error; err != nil {
		return nil, translate(err, ErrPermissionNotFound)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionCreate, Category: models.ActivityPermission,
		ObjectType: "permission", ObjectID: p.ID, ObjectRepr: p.String(),
		Description: fmt.Sprintf("Utworzono uprawnienie: %s", p.Name),
	})
	return p, nil
}

func (s *PermissionService) UpdatePermission(actor Actor, id uint, in PermissionInput) (*models.Permission, error) {
	if err := validatePermission(in); err != nil {
		return nil, err
	}
	p, err := s.GetPermission(id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = in.Category
	if err := s.db.Save(p).Error; err != nil {
		return nil, translate(err, ErrPermissionNotFound)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityPermission,
		ObjectType: "permission", ObjectID: p.ID, ObjectRepr: p.String(),
		Description: fmt.Sprintf("Zaktualizowano uprawnienie: %s", p.Name),
	})
	return p, nil
}

// SeedSystemPermissions installs the predefined permission catalog. Existing
// names are left untouched, so the call is idempotent.
func (s *PermissionService) SeedSystemPermissions(actor Actor) (int, error) {
	created := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, def := range models.SystemPermissions {
			var n int64
			if err := tx.Model(&models.Permission{}).Where("name = ?", def.Name).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			p := def
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("create permission %q: %w", def.Name, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.activity.Record(actor, ActivityEntry{
			Action: models.ActionImport, Category: models.ActivityPermission,
			ObjectType: "permission", ObjectRepr: "Uprawnienia systemowe",
			Description: fmt.Sprintf("Zainstalowano %d uprawnień systemowych", created),
		})
	}
	return created, nil
}

// Groups

func (s *PermissionService) ListGroups() ([]models.PermissionGroup, error) {
	var groups []models.PermissionGroup
	return groups, s.db.Preload("Permissions").Order("name").Find(&groups).Error
}

func (s *PermissionService) GetGroup(id uint) (*models.PermissionGroup, error) {
	var g models.PermissionGroup
	if err := s.db.Preload("Permissions").First(&g, id).Error; err != nil {
		return nil, translate(err, ErrPermissionGroupNotFound)
	}
	return &g, nil
}

func (s *PermissionService) permissionsByID(ids []uint) ([]models.Permission, error) {
	if len(ids) == 0 {
		return []models.Permission{}, nil
	}
	var perms []models.Permission
	if err := s.db.Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return nil, err
	}
	if len(perms) != len(uniqueIDs(ids)) {
		return nil, fieldError("permission_ids", "Wybrano nieistniejące uprawnienie.")
	}
	return perms, nil
}

func (s *PermissionService) CreateGroup(actor Actor, in GroupInput) (*models.PermissionGroup, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fieldError("name", "To pole jest wymagane.")
	}
	perms, err := s.permissionsByID(in.PermissionIDs)
	if err != nil {
		return nil, err
	}
	g := &models.PermissionGroup{Name: strings.TrimSpace(in.Name), Description: in.Description, Permissions: perms}
	if err := s.db.Create(g).Error; err != nil {
		return nil, translate(err, ErrPermissionGroupNotFound)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionCreate, Category: models.ActivityPermissionGroup,
		ObjectType: "permission_group", ObjectID: g.ID, ObjectRepr: g.String(),
		Description: fmt.Sprintf("Utworzono grupę uprawnień: %s", g.Name),
		Details:     map[string]interface{}{"permissions": len(perms)},
	})
	return g, nil
}

func (s *PermissionService) UpdateGroup(actor Actor, id uint, in GroupInput) (*models.PermissionGroup, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fieldError("name", "To pole jest wymagane.")
	}
	g, err := s.GetGroup(id)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissionsByID(in.PermissionIDs)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		g.Name = strings.TrimSpace(in.Name)
		g.Description = in.Description
		if err := tx.Omit("Permissions").Save(g).Error; err != nil {
			return err
		}
		return tx.Model(g).Association("Permissions").Replace(perms)
	})
	if err != nil {
		return nil, translate(err, ErrPermissionGroupNotFound)
	}
	g.Permissions = perms
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityPermissionGroup,
		ObjectType: "permission_group", ObjectID: g.ID, ObjectRepr: g.String(),
		Description: fmt.Sprintf("Zaktualizowano grupę uprawnień: %s", g.Name),
		Details:     map[string]interface{}{"permissions": len(perms)},
	})
	return g, nil
}

// Assignments

func (s *PermissionService) PositionAssignments(positionID uint) ([]models.PositionPermission, error) {
	var rows []models.PositionPermission
	return rows, s.db.Preload("PermissionGroup").Where("position_id = ?", positionID).Find(&rows).Error
}

func (s *PermissionService) DepartmentAssignments(departmentID uint) ([]models.DepartmentPermission, error) {
	var rows []models.DepartmentPermission
	return rows, s.db.Preload("PermissionGroup").Where("department_id = ?", departmentID).Find(&rows).Error
}

func (s *PermissionService) EmployeeAssignments(employeeID uint) ([]models.EmployeePermissionGroup, error) {
	var rows []models.EmployeePermissionGroup
	return rows, s.db.Preload("PermissionGroup").Where("employee_id = ?", employeeID).Find(&rows).Error
}

func (s *PermissionService) AssignToPosition(actor Actor, positionID, groupID uint) (*models.PositionPermission, error) {
	var pos models.Position
	if err := s.db.First(&pos, positionID).Error; err != nil {
		return nil, translate(err, ErrPositionNotFound)
	}
	row := &models.PositionPermission{PositionID: positionID, PermissionGroupID: groupID}
	group, err := s.assign(row, "position_id", positionID, groupID)
	if err != nil {
		return nil, err
	}
	row.PermissionGroup = group
	s.recordAssignment(actor, models.ActionAssign, models.ActivityPosition, "position", pos.ID, pos.String(), group)
	return row, nil
}

func (s *PermissionService) UnassignFromPosition(actor Actor, positionID, groupID uint) error {
	var pos models.Position
	if err := s.db.First(&pos, positionID).Error; err != nil {
		return translate(err, ErrPositionNotFound)
	}
	group, err := s.unassign(&models.PositionPermission{}, "position_id", positionID, groupID)
	if err != nil {
		return err
	}
	s.recordAssignment(actor, models.ActionUnassign, models.ActivityPosition, "position", pos.ID, pos.String(), group)
	return nil
}

func (s *PermissionService) AssignToDepartment(actor Actor, departmentID, groupID uint) (*models.DepartmentPermission, error) {
	var dept models.Department
	if err := s.db.First(&dept, departmentID).Error; err != nil {
		return nil, translate(err, ErrDepartmentNotFound)
	}
	row := &models.DepartmentPermission{DepartmentID: departmentID, PermissionGroupID: groupID}
	group, err := s.assign(row, "department_id", departmentID, groupID)
	if err != nil {
		return nil, err
	}
	row.PermissionGroup = group
	s.recordAssignment(actor, models.ActionAssign, models.ActivityDepartment, "department", dept.ID, dept.String(), group)
	return row, nil
}

func (s *PermissionService) UnassignFromDepartment(actor Actor, departmentID, groupID uint) error {
	var dept models.Department
	if err := s.db.First(&dept, departmentID).Error; err != nil {
		return translate(err, ErrDepartmentNotFound)
	}
	group, err := s.unassign(&models.DepartmentPermission{}, "department_id", departmentID, groupID)
	if err != nil {
		return err
	}
	s.recordAssignment(actor, models.ActionUnassign, models.ActivityDepartment, "department", dept.ID, dept.String(), group)
	return nil
}

func (s *PermissionService) AssignToEmployee(actor Actor, employeeID, groupID uint) (*models.EmployeePermissionGroup, error) {
	var emp models.Employee
	if err := s.db.First(&emp, employeeID).Error; err != nil {
		return nil, translate(err, ErrEmployeeNotFound)
	}
	row := &models.EmployeePermissionGroup{EmployeeID: employeeID, PermissionGroupID: groupID}
	group, err := s.assign(row, "employee_id", employeeID, groupID)
	if err != nil {
		return nil, err
	}
	row.PermissionGroup = group
	s.recordAssignment(actor, models.ActionAssign, models.ActivityEmployee, "employee", emp.ID, emp.String(), group)
	return row, nil
}

func (s *PermissionService) UnassignFromEmployee(actor Actor, employeeID, groupID uint) error {
	var emp models.Employee
	if err := s.db.First(&emp, employeeID).Error; err != nil {
		return translate(err, ErrEmployeeNotFound)
	}
	group, err := s.unassign(&models.EmployeePermissionGroup{}, "employee_id", employeeID, groupID)
	if err != nil {
		return err
	}
	s.recordAssignment(actor, models.ActionUnassign, models.ActivityEmployee, "employee", emp.ID, emp.String(), group)
	return nil
}

// assign inserts an assignment row after checking the group exists and the
// (subject, group) pair is not yet assigned.
func (s *PermissionService) assign(row interface{}, subjectColumn string, subjectID, groupID uint) (*models.PermissionGroup, error) {
	var group models.PermissionGroup
	if err := s.db.First(&group, groupID).Error; err != nil {
		return nil, translate(err, ErrPermissionGroupNotFound)
	}
	var n int64
	err := s.db.Model(row).Where(subjectColumn+" = ? AND permission_group_id = ?", subjectID, groupID).Count(&n).Error
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("%w: group %q is already assigned", ErrDuplicate, group.Name)
	}
	if err := s.db.Create(row).Error; err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}
	return &group, nil
}

func (s *PermissionService) unassign(model interface{}, subjectColumn string, subjectID, groupID uint) (*models.PermissionGroup, error) {
	var group models.PermissionGroup
	if err := s.db.First(&group, groupID).Error; err != nil {
		return nil, translate(err, ErrPermissionGroupNotFound)
	}
	res := s.db.Where(subjectColumn+" = ? AND permission_group_id = ?", subjectID, groupID).Delete(model)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAssignmentNotFound
	}
	return &group, nil
}

func (s *PermissionService) recordAssignment(actor Actor, action models.ActivityAction, category models.ActivityCategory, objectType string, id uint, repr string, group *models.PermissionGroup) {
	verb := "Przypisano"
	if action == models.ActionUnassign {
		verb = "Odebrano"
	}
	s.activity.Record(actor, ActivityEntry{
		Action: action, Category: category,
		ObjectType: objectType, ObjectID: id, ObjectRepr: repr,
		Description: fmt.Sprintf("%s grupę uprawnień %q: %s", verb, group.Name, repr),
		Details:     map[string]interface{}{"permission_group_id": group.ID, "permission_group": group.Name},
	})
}

func uniqueIDs(ids []uint) []uint {
	seen := map[uint]bool{}
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
