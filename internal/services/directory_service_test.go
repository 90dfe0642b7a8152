package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Czechuuuu/szbi/internal/models"
)

func newDirectory(t *testing.T) (*DirectoryService, Actor) {
	t.Helper()
	db := setupTestDB(t)
	admin := actorFor(t, db, seedSuperuser(t, db))
	return NewDirectoryService(db, NewActivityService(db, 50)), admin
}

func TestDirectoryService_MainOrganizationIsCreatedOnce(t *testing.T) {
	svc, admin := newDirectory(t)

	org, err := svc.MainOrganization()
	require.NoError(t, err)
	assert.Equal(t, "Moja organizacja", org.Name)

	again, err := svc.MainOrganization()
	require.NoError(t, err)
	assert.Equal(t, org.ID, again.ID)

	updated, err := svc.UpdateOrganization(admin, OrganizationInput{Name: "ACME sp. z o.o.", NIP: "1234567890"})
	require.NoError(t, err)
	assert.Equal(t, org.ID, updated.ID)
	assert.Equal(t, "ACME sp. z o.o.", updated.Name)
	require.NotNil(t, updated.CreatedByID)

	_, err = svc.UpdateOrganization(admin, OrganizationInput{Name: "  "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
}

func TestDirectoryService_DepartmentCycleIsRejected(t *testing.T) {
	svc, admin := newDirectory(t)

	root, err := svc.CreateDepartment(admin, DepartmentInput{Name: "Zarząd"})
	require.NoError(t, err)
	child, err := svc.CreateDepartment(admin, DepartmentInput{Name: "IT", ParentID: &root.ID})
	require.NoError(t, err)
	grandchild, err := svc.CreateDepartment(admin, DepartmentInput{Name: "Helpdesk", ParentID: &child.ID})
	require.NoError(t, err)

	_, err = svc.UpdateDepartment(admin, root.ID, DepartmentInput{Name: "Zarząd", ParentID: &grandchild.ID})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "parent_id")

	_, err = svc.UpdateDepartment(admin, root.ID, DepartmentInput{Name: "Zarząd", ParentID: &root.ID})
	require.ErrorAs(t, err, &verr)

	missing := uint(999)
	_, err = svc.CreateDepartment(admin, DepartmentInput{Name: "X", ParentID: &missing})
	require.ErrorAs(t, err, &verr)

	_, err = svc.UpdateDepartment(admin, 999, DepartmentInput{Name: "X"})
	assert.ErrorIs(t, err, ErrDepartmentNotFound)
}

func TestDirectoryService_Structure(t *testing.T) {
	svc, admin := newDirectory(t)

	it, err := svc.CreateDepartment(admin, DepartmentInput{Name: "IT"})
	require.NoError(t, err)
	_, err = svc.CreateDepartment(admin, DepartmentInput{Name: "Sieci", ParentID: &it.ID})
	require.NoError(t, err)
	_, err = svc.CreatePosition(admin, PositionInput{Name: "Administrator", DepartmentID: &it.ID})
	require.NoError(t, err)
	_, err = svc.CreatePosition(admin, PositionInput{Name: "Konsultant"})
	require.NoError(t, err)
	_, err = svc.CreateEmployee(admin, EmployeeInput{FirstName: "Anna", LastName: "Nowak", Email: "anna@example.com", Password: "password123", DepartmentID: &it.ID})
	require.NoError(t, err)

	st, err := svc.Structure()
	require.NoError(t, err)
	require.Len(t, st.Departments, 1)
	assert.Equal(t, "IT", st.Departments[0].Name)
	assert.EqualValues(t, 1, st.Departments[0].EmployeeCount)
	require.Len(t, st.Departments[0].Children, 1)
	assert.Equal(t, "Sieci", st.Departments[0].Children[0].Name)
	require.Len(t, st.Departments[0].Positions, 1)
	require.Len(t, st.UnassignedPositions, 1)
	assert.Equal(t, "Konsultant", st.UnassignedPositions[0].Name)
	assert.EqualValues(t, 1, st.EmployeeCount)
}

func TestDirectoryService_CreateEmployee(t *testing.T) {
	svc, admin := newDirectory(t)

	pos, err := svc.CreatePosition(admin, PositionInput{Name: "Inspektor"})
	require.NoError(t, err)

	emp, err := svc.CreateEmployee(admin, EmployeeInput{
		FirstName: "Jan", LastName: "Kowalski", Email: "Jan.Kowalski@Example.com",
		Password: "password123", PositionIDs: []uint{pos.ID}, HireDate: "2024-02-01",
	})
	require.NoError(t, err)
	require.NotNil(t, emp.User)
	assert.Equal(t, "jan.kowalski@example.com", emp.User.Email)
	assert.True(t, emp.User.CheckPassword("password123"))
	assert.True(t, emp.IsActive)
	require.NotNil(t, emp.HireDate)
	assert.Equal(t, "2024-02-01", emp.HireDate.Format(dateLayout))

	got, err := svc.GetEmployee(emp.ID)
	require.NoError(t, err)
	require.Len(t, got.Positions, 1)
	assert.Equal(t, "Inspektor", got.Positions[0].Name)

	_, err = svc.CreateEmployee(admin, EmployeeInput{FirstName: "Jan", LastName: "Drugi", Email: "jan.kowalski@example.com", Password: "password123"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}

func TestDirectoryService_CreateEmployeeValidation(t *testing.T) {
	svc, admin := newDirectory(t)

	_, err := svc.CreateEmployee(admin, EmployeeInput{Email: "x@example.com", Password: "short", HireDate: "01.02.2024"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, f := range []string{"first_name", "last_name", "password", "hire_date"} {
		assert.Contains(t, verr.Fields, f)
	}

	_, err = svc.CreateEmployee(admin, EmployeeInput{FirstName: "A", LastName: "B", Email: "ab@example.com", Password: "password123", PositionIDs: []uint{42}})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "position_ids")
}

func TestDirectoryService_UpdateEmployeeSyncsAccount(t *testing.T) {
	svc, admin := newDirectory(t)

	emp, err := svc.CreateEmployee(admin, EmployeeInput{FirstName: "Ewa", LastName: "Lis", Email: "ewa@example.com", Password: "password123"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.UpdateEmployee(admin, emp.ID, EmployeeInput{
		FirstName: "Ewa", LastName: "Lis-Nowak", Email: "ewa.nowak@example.com", IsActive: &inactive, IsStaff: true,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	require.NotNil(t, updated.User)
	assert.Equal(t, "ewa.nowak@example.com", updated.User.Email)
	assert.Equal(t, "Ewa Lis-Nowak", updated.User.Name)
	assert.False(t, updated.User.IsActive)
	assert.True(t, updated.User.IsStaff)
	assert.True(t, updated.User.CheckPassword("password123"), "password is kept when omitted")
}

func TestDirectoryService_SetPositionsAndFilters(t *testing.T) {
	svc, admin := newDirectory(t)

	it, err := svc.CreateDepartment(admin, DepartmentInput{Name: "IT"})
	require.NoError(t, err)
	p1, err := svc.CreatePosition(admin, PositionInput{Name: "Dev", DepartmentID: &it.ID})
	require.NoError(t, err)
	p2, err := svc.CreatePosition(admin, PositionInput{Name: "Ops", DepartmentID: &it.ID})
	require.NoError(t, err)

	emp, err := svc.CreateEmployee(admin, EmployeeInput{FirstName: "Piotr", LastName: "Zieliński", Email: "piotr@example.com", Password: "password123", DepartmentID: &it.ID})
	require.NoError(t, err)
	_, err = svc.CreateEmployee(admin, EmployeeInput{FirstName: "Marta", LastName: "Wójcik", Email: "marta@example.com", Password: "password123"})
	require.NoError(t, err)

	got, err := svc.SetPositions(admin, emp.ID, []uint{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.Len(t, got.Positions, 2)

	list, err := svc.ListEmployees(EmployeeFilter{DepartmentID: &it.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Piotr", list[0].FirstName)

	list, err = svc.ListEmployees(EmployeeFilter{Query: "marta"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	positions, err := svc.ListPositions(&it.ID)
	require.NoError(t, err)
	assert.Len(t, positions, 2)

	assert.EqualValues(t, 1, countActivity(t, svc.db, models.ActionAssign, models.ActivityEmployee))
	assert.EqualValues(t, 2, countActivity(t, svc.db, models.ActionCreate, models.ActivityEmployee))
}
