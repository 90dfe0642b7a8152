package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/services"
)

// DirectoryHandler serves the organization, departments, positions and
// employees together with their permission group assignments.
type DirectoryHandler struct {
	directory   *services.DirectoryService
	permissions *services.PermissionService
}

func NewDirectoryHandler(directory *services.DirectoryService, permissions *services.PermissionService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, permissions: permissions}
}

func (h *DirectoryHandler) Organization(c *gin.Context) {
	structure, err := h.directory.Structure()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, structure)
}

func (h *DirectoryHandler) UpdateOrganization(c *gin.Context) {
	var in services.OrganizationInput
	if !bindJSON(c, &in) {
		return
	}
	org, err := h.directory.UpdateOrganization(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Dane organizacji zostały zaktualizowane.", org)
}

func (h *DirectoryHandler) ListDepartments(c *gin.Context) {
	departments, err := h.directory.ListDepartments()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, departments)
}

func (h *DirectoryHandler) GetDepartment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	department, err := h.directory.GetDepartment(id)
	if err != nil {
		respondError(c, err)
		return
	}
	assignments, err := h.permissions.DepartmentAssignments(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"department": department, "permission_groups": assignments})
}

func (h *DirectoryHandler) CreateDepartment(c *gin.Context) {
	var in services.DepartmentInput
	if !bindJSON(c, &in) {
		return
	}
	department, err := h.directory.CreateDepartment(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Dział został utworzony.", department)
}

func (h *DirectoryHandler) UpdateDepartment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.DepartmentInput
	if !bindJSON(c, &in) {
		return
	}
	department, err := h.directory.UpdateDepartment(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Dział został zaktualizowany.", department)
}

func (h *DirectoryHandler) ListPositions(c *gin.Context) {
	positions, err := h.directory.ListPositions(queryID(c, "department_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

func (h *DirectoryHandler) GetPosition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	position, err := h.directory.GetPosition(id)
	if err != nil {
		respondError(c, err)
		return
	}
	assignments, err := h.permissions.PositionAssignments(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": position, "permission_groups": assignments})
}

func (h *DirectoryHandler) CreatePosition(c *gin.Context) {
	var in services.PositionInput
	if !bindJSON(c, &in) {
		return
	}
	position, err := h.directory.CreatePosition(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Stanowisko zostało utworzone.", position)
}

func (h *DirectoryHandler) UpdatePosition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.PositionInput
	if !bindJSON(c, &in) {
		return
	}
	position, err := h.directory.UpdatePosition(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Stanowisko zostało zaktualizowane.", position)
}

func (h *DirectoryHandler) ListEmployees(c *gin.Context) {
	f := services.EmployeeFilter{
		DepartmentID: queryID(c, "department_id"),
		Query:        c.Query("q"),
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			f.Active = &active
		}
	}
	employees, err := h.directory.ListEmployees(f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employees)
}

// GetEmployee returns the employee with the groups assigned directly and the
// permissions resolved across every assignment path.
func (h *DirectoryHandler) GetEmployee(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	employee, err := h.directory.GetEmployee(id)
	if err != nil {
		respondError(c, err)
		return
	}
	assignments, err := h.permissions.EmployeeAssignments(id)
	if err != nil {
		respondError(c, err)
		return
	}
	effective, err := h.permissions.EffectivePermissions(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employee":              employee,
		"permission_groups":     assignments,
		"effective_permissions": effective.Names(),
	})
}

func (h *DirectoryHandler) CreateEmployee(c *gin.Context) {
	var in services.EmployeeInput
	if !bindJSON(c, &in) {
		return
	}
	employee, err := h.directory.CreateEmployee(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Pracownik został dodany.", employee)
}

func (h *DirectoryHandler) UpdateEmployee(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.EmployeeInput
	if !bindJSON(c, &in) {
		return
	}
	employee, err := h.directory.UpdateEmployee(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Dane pracownika zostały zaktualizowane.", employee)
}

type positionsRequest struct {
	PositionIDs []uint `json:"position_ids"`
}

func (h *DirectoryHandler) SetPositions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req positionsRequest
	if !bindJSON(c, &req) {
		return
	}
	employee, err := h.directory.SetPositions(actorOf(c), id, req.PositionIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Stanowiska pracownika zostały zaktualizowane.", employee)
}

type groupRequest struct {
	GroupID uint `json:"group_id" binding:"required"`
}

type assignFunc func(actor services.Actor, subjectID, groupID uint) error

// assign binds a group id from the body and applies fn to the subject.
func assign(fn assignFunc, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req groupRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := fn(actorOf(c), id, req.GroupID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}

// unassign reads the group id from the path and applies fn to the subject.
func unassign(fn assignFunc, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		groupID, ok := parseID(c, "group_id")
		if !ok {
			return
		}
		if err := fn(actorOf(c), id, groupID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}

func (h *DirectoryHandler) AssignDepartmentGroup() gin.HandlerFunc {
	return assign(func(a services.Actor, id, groupID uint) error {
		_, err := h.permissions.AssignToDepartment(a, id, groupID)
		return err
	}, "Grupa uprawnień została przypisana do działu.")
}

func (h *DirectoryHandler) UnassignDepartmentGroup() gin.HandlerFunc {
	return unassign(h.permissions.UnassignFromDepartment, "Grupa uprawnień została odłączona od działu.")
}

func (h *DirectoryHandler) AssignPositionGroup() gin.HandlerFunc {
	return assign(func(a services.Actor, id, groupID uint) error {
		_, err := h.permissions.AssignToPosition(a, id, groupID)
		return err
	}, "Grupa uprawnień została przypisana do stanowiska.")
}

func (h *DirectoryHandler) UnassignPositionGroup() gin.HandlerFunc {
	return unassign(h.permissions.UnassignFromPosition, "Grupa uprawnień została odłączona od stanowiska.")
}

func (h *DirectoryHandler) AssignEmployeeGroup() gin.HandlerFunc {
	return assign(func(a services.Actor, id, groupID uint) error {
		_, err := h.permissions.AssignToEmployee(a, id, groupID)
		return err
	}, "Grupa uprawnień została przypisana do pracownika.")
}

func (h *DirectoryHandler) UnassignEmployeeGroup() gin.HandlerFunc {
	return unassign(h.permissions.UnassignFromEmployee, "Grupa uprawnień została odłączona od pracownika.")
}
