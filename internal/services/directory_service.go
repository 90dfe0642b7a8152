package services

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/models"
)

const dateLayout = "2006-01-02"

// OrganizationInput is the editable part of the main organization.
type OrganizationInput struct {
	Name        string `json:"name" binding:"required,max=255"`
	ShortName   string `json:"short_name" binding:"max=50"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone" binding:"max=20"`
	Email       string `json:"email" binding:"omitempty,email"`
	Website     string `json:"website" binding:"omitempty,url"`
	NIP         string `json:"nip" binding:"max=20"`
	REGON       string `json:"regon" binding:"max=20"`
}

type DepartmentInput struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
}

type PositionInput struct {
	Name         string `json:"name" binding:"required,max=255"`
	Description  string `json:"description"`
	DepartmentID *uint  `json:"department_id"`
}

// EmployeeInput creates or updates an employee together with its account.
// Password is required on create and optional on update.
type EmployeeInput struct {
	FirstName    string `json:"first_name" binding:"required,max=100"`
	LastName     string `json:"last_name" binding:"required,max=100"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"omitempty,min=8"`
	DepartmentID *uint  `json:"department_id"`
	PositionIDs  []uint `json:"position_ids"`
	HireDate     string `json:"hire_date"`
	IsActive     *bool  `json:"is_active"`
	IsStaff      bool   `json:"is_staff"`
}

// EmployeeFilter narrows the employee listing.
type EmployeeFilter struct {
	DepartmentID *uint
	Active       *bool
	Query        string
}

// DepartmentNode is one department of the organization structure tree.
type DepartmentNode struct {
	ID            uint              `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	ParentID      *uint             `json:"parent_id"`
	EmployeeCount int64             `json:"employee_count"`
	Positions     []models.Position `json:"positions"`
	Children      []*DepartmentNode `json:"children"`
}

// OrganizationStructure is the directory tree of the main organization.
type OrganizationStructure struct {
	Organization        *models.Organization `json:"organization"`
	Departments         []*DepartmentNode    `json:"departments"`
	UnassignedPositions []models.Position    `json:"unassigned_positions"`
	EmployeeCount       int64                `json:"employee_count"`
}

// DirectoryService manages the organization, its departments, positions and
// employees.
type DirectoryService struct {
	db       *gorm.DB
	activity *ActivityService
}

func NewDirectoryService(db *gorm.DB, activity *ActivityService) *DirectoryService {
	return &DirectoryService{db: db, activity: activity}
}

// MainOrganization returns the first organization, creating a placeholder
// when none exists yet.
func (s *DirectoryService) MainOrganization() (*models.Organization, error) {
	var org models.Organization
	if err := s.db.Where("parent_id IS NULL").Order("id").Limit(1).Find(&org).Error; err != nil {
		return nil, err
	}
	if org.ID != 0 {
		return &org, nil
	}
	org = models.Organization{Name: "Moja organizacja"}
	if err := s.db.Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *DirectoryService) UpdateOrganization(actor Actor, in OrganizationInput) (*models.Organization, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fieldError("name", "To pole jest wymagane.")
	}
	org, err := s.MainOrganization()
	if err != nil {
		return nil, err
	}
	org.Name = strings.TrimSpace(in.Name)
	org.ShortName = in.ShortName
	org.Description = in.Description
	org.Address = in.Address
	org.Phone = in.Phone
	org.Email = in.Email
	org.Website = in.Website
	org.NIP = in.NIP
	org.REGON = in.REGON
	if org.CreatedByID == nil {
		org.CreatedByID = actor.UserID()
	}
	if err := s.db.Save(org).Error; err != nil {
		return nil, err
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityOrganization,
		ObjectType: "organization", ObjectID: org.ID, ObjectRepr: org.String(),
		Description: fmt.Sprintf("Zaktualizowano dane organizacji: %s", org.Name),
	})
	return org, nil
}

// Structure builds the department tree of the main organization.
func (s *DirectoryService) Structure() (*OrganizationStructure, error) {
	org, err := s.MainOrganization()
	if err != nil {
		return nil, err
	}

	var depts []models.Department
	if err := s.db.Where("organization_id = ?", org.ID).Order("name").Find(&depts).Error; err != nil {
		return nil, err
	}
	var positions []models.Position
	if err := s.db.Where("organization_id = ?", org.ID).Order("name").Find(&positions).Error; err != nil {
		return nil, err
	}

	type deptCount struct {
		DepartmentID uint
		N            int64
	}
	var counts []deptCount
	err = s.db.Model(&models.Employee{}).
		Select("department_id, COUNT(*) AS n").
		Where("organization_id = ? AND department_id IS NOT NULL", org.ID).
		Group("department_id").Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	nodes := make(map[uint]*DepartmentNode, len(depts))
	for _, d := range depts {
		nodes[d.ID] = &DepartmentNode{
			ID: d.ID, Name: d.Name, Description: d.Description, ParentID: d.ParentID,
			Positions: []models.Position{}, Children: []*DepartmentNode{},
		}
	}
	for _, c := range counts {
		if n, ok := nodes[c.DepartmentID]; ok {
			n.EmployeeCount = c.N
		}
	}

	out := &OrganizationStructure{Organization: org, Departments: []*DepartmentNode{}, UnassignedPositions: []models.Position{}}
	for _, p := range positions {
		if p.DepartmentID != nil {
			if n, ok := nodes[*p.DepartmentID]; ok {
				n.Positions = append(n.Positions, p)
				continue
			}
		}
		out.UnassignedPositions = append(out.UnassignedPositions, p)
	}
	for _, d := range depts {
		node := nodes[d.ID]
		if d.ParentID != nil {
			if parent, ok := nodes[*d.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		out.Departments = append(out.Departments, node)
	}

	if err := s.db.Model(&models.Employee{}).Where("organization_id = ?", org.ID).Count(&out.EmployeeCount).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Departments

func (s *DirectoryService) ListDepartments() ([]models.Department, error) {
	var depts []models.Department
	return depts, s.db.Order("name").Find(&depts).Error
}

func (s *DirectoryService) GetDepartment(id uint) (*models.Department, error) {
	var d models.Department
	err := s.db.Preload("Children").Preload("Positions").
		Preload("PermissionAssignments.PermissionGroup").
		First(&d, id).Error
	if err != nil {
		return nil, translate(err, ErrDepartmentNotFound)
	}
	return &d, nil
}

// validateParent rejects a parent outside the organization or one that would
// close a cycle through id. id is zero for new departments.
func (s *DirectoryService) validateParent(id uint, parentID *uint, orgID uint) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return fieldError("parent_id", "Dział nie może być swoim własnym nadrzędnym.")
	}
	var parent models.Department
	if err := s.db.First(&parent, *parentID).Error; err != nil {
		return fieldError("parent_id", "Wybrany dział nadrzędny nie istnieje.")
	}
	if parent.OrganizationID != orgID {
		return fieldError("parent_id", "Dział nadrzędny musi należeć do tej samej organizacji.")
	}
	if id == 0 {
		return nil
	}
	seen := map[uint]bool{}
	for cur := parent.ParentID; cur != nil; {
		if *cur == id {
			return fieldError("parent_id", "Wybrany dział nadrzędny jest działem podrzędnym.")
		}
		if seen[*cur] {
			break
		}
		seen[*cur] = true
		var next models.Department
		if err := s.db.Select("id", "parent_id").First(&next, *cur).Error; err != nil {
			break
		}
		cur = next.ParentID
	}
	return nil
}

func (s *DirectoryService) CreateDepartment(actor Actor, in DepartmentInput) (*models.Department, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fieldError("name", "To pole jest wymagane.")
	}
	org, err := s.MainOrganization()
	if err != nil {
		return nil, err
	}
	if err := s.validateParent(0, in.ParentID, org.ID); err != nil {
		return nil, err
	}
	d := &models.Department{OrganizationID: org.ID, ParentID: in.ParentID, Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := s.db.Create(d).Error; err != nil {
		return nil, translate(err, ErrDepartmentNotFound)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionCreate, Category: models.ActivityDepartment,
		ObjectType: "department", ObjectID: d.ID, ObjectRepr: d.String(),
		Description: fmt.Sprintf("Utworzono dział: %s", d.Name),
	})
	return d, nil
}

func (s *DirectoryService) UpdateDepartment(actor Actor, id uint, in DepartmentInput) (*models.Department, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fieldError("name", "To pole jest wymagane.")
	}
	var d models.Department
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDepartmentNotFound)
	}
	if err := s.validateParent(d.ID, in.ParentID, d.OrganizationID); err != nil {
		return nil, err
	}
	d.Name = strings.TrimSpace(in.Name)
	d.Description = in.Description
	d.ParentID = in.ParentID
	if err := s.db.Save(&d).Error; err != nil {
		return nil, err
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityDepartment,
		ObjectType: "department", ObjectID: d.ID, ObjectRepr: d.String(),
		Description: fmt.Sprintf("Zaktualizowano dział: %s", d.Name),
	})
	return &d, nil
}

// Positions

func (s *DirectoryService) ListPositions(departmentID *uint) ([]models.Position, error) {
	var positions []models.Position
	q := s.db.Preload("Department").Order("name")
	if departmentID != nil {
		q = q.Where("department_id = ?", *departmentID)
	}
	return positions, q.Find(&positions).Error
}

func (s *DirectoryService) GetPosition(id uint) (*models.Position, error) {
	var p models.Position
	if err := s.db.Preload("Department").Preload("PermissionAssignments.PermissionGroup").First(&p, id).Error; err != nil {
		return nil, translate(err, ErrPositionNotFound)
	}
	return &p, nil
}

func (s *DirectoryService) validateDepartmentRef(field string, departmentID *uint, orgID uint) error {
	if departmentID == nil {
		return nil
	}
	var d models.Department
	if err := s.db.First(&d, *departmentID).Error; err != nil {
		return fieldError(field, "Wybrany dział nie istnieje.")
	}
	if d.OrganizationID != orgID {
		return fieldError(field, "Dział musi należeć do tej samej organizacji.")
	}
	return nil
}

func (s *DirectoryService) CreatePosition(actor Actor, in PositionInput) (*models.Position, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fieldError("name", "To pole jest wymagane.")
	}
	org, err := s.MainOrganization()
	if err != nil {
		return nil, err
	}
	if err := s.validateDepartmentRef("department_id", in.DepartmentID, org.ID); err != nil {
		return nil, err
	}
	p := &models.Position{OrganizationID: org.ID, DepartmentID: in.DepartmentID, Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := s.db.Create(p).Error; err != nil {
		return nil, translate(err, ErrPositionNotFound)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionCreate, Category: models.ActivityPosition,
		ObjectType: "position", ObjectID: p.ID, ObjectRepr: p.String(),
		Description: fmt.Sprintf("Utworzono stanowisko: %s", p.Name),
	})
	return p, nil
}

func (s *DirectoryService) UpdatePosition(actor Actor, id uint, in PositionInput) (*models.Position, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fieldError("name", "To pole jest wymagane.")
	}
	var p models.Position
	if err := s.db.First(&p, id).Error; err != nil {
		return nil, translate(err, ErrPositionNotFound)
	}
	if err := s.validateDepartmentRef("department_id", in.DepartmentID, p.OrganizationID); err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.DepartmentID = in.DepartmentID
	if err := s.db.Omit("Department").Save(&p).Error; err != nil {
		return nil, err
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityPosition,
		ObjectType: "position", ObjectID: p.ID, ObjectRepr: p.String(),
		Description: fmt.Sprintf("Zaktualizowano stanowisko: %s", p.Name),
	})
	return &p, nil
}

// Employees

func (s *DirectoryService) ListEmployees(f EmployeeFilter) ([]models.Employee, error) {
	var employees []models.Employee
	q := s.db.Preload("User").Preload("Department").Preload("Positions").Order("last_name, first_name")
	if f.DepartmentID != nil {
		q = q.Where("department_id = ?", *f.DepartmentID)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := containsPattern(term)
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like)
	}
	return employees, q.Find(&employees).Error
}

func (s *DirectoryService) GetEmployee(id uint) (*models.Employee, error) {
	var e models.Employee
	err := s.db.Preload("User").Preload("Department").Preload("Positions").
		Preload("PermissionGroupAssignments.PermissionGroup").
		First(&e, id).Error
	if err != nil {
		return nil, translate(err, ErrEmployeeNotFound)
	}
	return &e, nil
}

func (s *DirectoryService) positionsByID(ids []uint, orgID uint) ([]models.Position, error) {
	if len(ids) == 0 {
		return []models.Position{}, nil
	}
	var positions []models.Position
	if err := s.db.Where("id IN ? AND organization_id = ?", ids, orgID).Find(&positions).Error; err != nil {
		return nil, err
	}
	if len(positions) != len(uniqueIDs(ids)) {
		return nil, fieldError("position_ids", "Wybrano nieistniejące stanowisko.")
	}
	return positions, nil
}

func parseOptionalDate(v *ValidationError, field, value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		v.Add(field, "Nieprawidłowa data, oczekiwany format RRRR-MM-DD.")
		return nil
	}
	return &t
}

func (s *DirectoryService) emailTaken(email string, exceptUserID uint) (bool, error) {
	var n int64
	err := s.db.Model(&models.User{}).Where("LOWER(email) = ? AND id <> ?", strings.ToLower(email), exceptUserID).Count(&n).Error
	return n > 0, err
}

func (s *DirectoryService) CreateEmployee(actor Actor, in EmployeeInput) (*models.Employee, error) {
	v := &ValidationError{}
	if strings.TrimSpace(in.FirstName) == "" {
		v.Add("first_name", "To pole jest wymagane.")
	}
	if strings.TrimSpace(in.LastName) == "" {
		v.Add("last_name", "To pole jest wymagane.")
	}
	if strings.TrimSpace(in.Email) == "" {
		v.Add("email", "To pole jest wymagane.")
	}
	if len(in.Password) < 8 {
		v.Add("password", "Hasło musi mieć co najmniej 8 znaków.")
	}
	hire := parseOptionalDate(v, "hire_date", in.HireDate)
	if err := v.Err(); err != nil {
		return nil, err
	}

	org, err := s.MainOrganization()
	if err != nil {
		return nil, err
	}
	if err := s.validateDepartmentRef("department_id", in.DepartmentID, org.ID); err != nil {
		return nil, err
	}
	positions, err := s.positionsByID(in.PositionIDs, org.ID)
	if err != nil {
		return nil, err
	}
	if taken, err := s.emailTaken(in.Email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, fieldError("email", "Użytkownik z tym adresem e-mail już istnieje.")
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	user := &models.User{
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Name:     strings.TrimSpace(in.FirstName + " " + in.LastName),
		IsActive: active,
		IsStaff:  in.IsStaff,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, err
	}
	emp := &models.Employee{
		OrganizationID: org.ID,
		DepartmentID:   in.DepartmentID,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		HireDate:       hire,
		IsActive:       active,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		emp.UserID = user.ID
		if err := tx.Omit("Positions").Create(emp).Error; err != nil {
			return err
		}
		if len(positions) > 0 {
			return tx.Model(emp).Association("Positions").Replace(positions)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, ErrEmployeeNotFound)
	}
	emp.User = user
	emp.Positions = positions

	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionCreate, Category: models.ActivityEmployee,
		ObjectType: "employee", ObjectID: emp.ID, ObjectRepr: emp.String(),
		Description: fmt.Sprintf("Utworzono pracownika: %s (%s)", emp.FullName(), user.Email),
	})
	return emp, nil
}

func (s *DirectoryService) UpdateEmployee(actor Actor, id uint, in EmployeeInput) (*models.Employee, error) {
	v := &ValidationError{}
	if strings.TrimSpace(in.FirstName) == "" {
		v.Add("first_name", "To pole jest wymagane.")
	}
	if strings.TrimSpace(in.LastName) == "" {
		v.Add("last_name", "To pole jest wymagane.")
	}
	if in.Password != "" && len(in.Password) < 8 {
		v.Add("password", "Hasło musi mieć co najmniej 8 znaków.")
	}
	hire := parseOptionalDate(v, "hire_date", in.HireDate)
	if err := v.Err(); err != nil {
		return nil, err
	}

	emp, err := s.GetEmployee(id)
	if err != nil {
		return nil, err
	}
	if err := s.validateDepartmentRef("department_id", in.DepartmentID, emp.OrganizationID); err != nil {
		return nil, err
	}
	positions, err := s.positionsByID(in.PositionIDs, emp.OrganizationID)
	if err != nil {
		return nil, err
	}
	if in.Email != "" {
		if taken, err := s.emailTaken(in.Email, emp.UserID); err != nil {
			return nil, err
		} else if taken {
			return nil, fieldError("email", "Użytkownik z tym adresem e-mail już istnieje.")
		}
	}

	emp.FirstName = strings.TrimSpace(in.FirstName)
	emp.LastName = strings.TrimSpace(in.LastName)
	emp.DepartmentID = in.DepartmentID
	emp.Department = nil
	emp.HireDate = hire
	if in.IsActive != nil {
		emp.IsActive = *in.IsActive
	}

	user := emp.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Department", "Positions", "PermissionGroupAssignments", "Organization").Save(emp).Error; err != nil {
			return err
		}
		if err := tx.Model(emp).Association("Positions").Replace(positions); err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		if in.Email != "" {
			user.Email = strings.ToLower(strings.TrimSpace(in.Email))
		}
		user.Name = emp.FullName()
		user.IsActive = emp.IsActive
		user.IsStaff = in.IsStaff
		if in.Password != "" {
			if err := user.SetPassword(in.Password); err != nil {
				return err
			}
		}
		return tx.Save(user).Error
	})
	if err != nil {
		return nil, translate(err, ErrEmployeeNotFound)
	}
	emp.Positions = positions

	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityEmployee,
		ObjectType: "employee", ObjectID: emp.ID, ObjectRepr: emp.String(),
		Description: fmt.Sprintf("Zaktualizowano pracownika: %s", emp.FullName()),
	})
	return emp, nil
}

// SetPositions replaces the employee's positions.
func (s *DirectoryService) SetPositions(actor Actor, id uint, positionIDs []uint) (*models.Employee, error) {
	var emp models.Employee
	if err := s.db.First(&emp, id).Error; err != nil {
		return nil, translate(err, ErrEmployeeNotFound)
	}
	positions, err := s.positionsByID(positionIDs, emp.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&emp).Association("Positions").Replace(positions); err != nil {
		return nil, err
	}
	emp.Positions = positions

	names := make([]string, 0, len(positions))
	for _, p := range positions {
		names = append(names, p.Name)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionAssign, Category: models.ActivityEmployee,
		ObjectType: "employee", ObjectID: emp.ID, ObjectRepr: emp.String(),
		Description: fmt.Sprintf("Ustawiono stanowiska pracownika %s: %s", emp.FullName(), strings.Join(names, ", ")),
	})
	return &emp, nil
}
