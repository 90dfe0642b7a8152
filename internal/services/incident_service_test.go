package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/models"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
	titles []string
}

func (f *fakeNotifier) Notify(eventType string, nType models.NotificationType, title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	f.titles = append(f.titles, title)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type incidentFixture struct {
	db       *gorm.DB
	svc      *IncidentService
	notifier *fakeNotifier
	admin    Actor
	reporter Actor
	manager  Actor
	outsider Actor
}

func newIncidentFixture(t *testing.T) *incidentFixture {
	t.Helper()
	db := setupTestDB(t)
	org := seedOrganization(t, db)
	n := &fakeNotifier{}

	perms := NewPermissionService(db, NewActivityService(db, 50))
	managers := seedGroup(t, db, "Managers", models.PermIncidentsManage)
	reporters := seedGroup(t, db, "Reporters", models.PermIncidentsViewOwn)

	mgr := seedEmployee(t, db, org.ID, "manager@example.com")
	_, err := perms.AssignToEmployee(SystemActor(), mgr.ID, managers.ID)
	require.NoError(t, err)
	rep := seedEmployee(t, db, org.ID, "reporter@example.com")
	_, err = perms.AssignToEmployee(SystemActor(), rep.ID, reporters.ID)
	require.NoError(t, err)
	out := seedEmployee(t, db, org.ID, "outsider@example.com")

	return &incidentFixture{
		db:       db,
		svc:      NewIncidentService(db, NewActivityService(db, 50), n),
		notifier: n,
		admin:    actorFor(t, db, seedSuperuser(t, db)),
		reporter: actorFor(t, db, rep.User),
		manager:  actorFor(t, db, mgr.User),
		outsider: actorFor(t, db, out.User),
	}
}

func (f *incidentFixture) report(t *testing.T) *models.Incident {
	t.Helper()
	inc, err := f.svc.Report(f.reporter, IncidentReportInput{
		Title: "Podejrzany e-mail", Description: "Wiadomość z linkiem", OccurredAt: "2025-04-01T09:30",
	})
	require.NoError(t, err)
	return inc
}

func TestIncidentNextStatusSequence(t *testing.T) {
	var visited []models.IncidentStatus
	s := models.IncidentReported
	for {
		next, ok := s.Next()
		if !ok {
			break
		}
		visited = append(visited, next)
		s = next
	}
	assert.Equal(t, []models.IncidentStatus{
		models.IncidentAnalysis, models.IncidentResponse, models.IncidentAction, models.IncidentClosed,
	}, visited)
}

func TestIncidentService_ReportNotifiesAndLogs(t *testing.T) {
	f := newIncidentFixture(t)
	inc := f.report(t)

	assert.Equal(t, models.IncidentReported, inc.Status)
	assert.Nil(t, inc.ClosedAt)
	assert.Equal(t, 9, inc.OccurredAt.Hour())
	assert.Equal(t, 1, f.notifier.count())
	assert.Equal(t, EventIncident, f.notifier.events[0])

	logs, err := f.svc.Logs(inc.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.IncidentLogCreated, logs[0].Action)

	_, err = f.svc.Report(SystemActor(), IncidentReportInput{Title: "x", Description: "y", OccurredAt: "2025-01-01"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.Report(f.reporter, IncidentReportInput{Title: "x", Description: "y", OccurredAt: "wczoraj"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "occurred_at")
}

func TestIncidentService_Visibility(t *testing.T) {
	f := newIncidentFixture(t)
	inc := f.report(t)

	_, err := f.svc.Get(f.reporter, inc.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(f.admin, inc.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(f.outsider, inc.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = f.svc.Get(f.manager, inc.ID)
	assert.NoError(t, err, "manage permission implies view-all")

	mine, err := f.svc.ListMine(f.reporter, IncidentFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	mine, err = f.svc.ListMine(f.outsider, IncidentFilter{})
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestIncidentService_ManagerNeedsAssignment(t *testing.T) {
	f := newIncidentFixture(t)
	inc := f.report(t)

	_, err := f.svc.SaveResponse(f.manager, inc.ID, IncidentResponseInput{ResponseActions: "Zablokowano nadawcę"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.Assign(f.manager, inc.ID, f.manager.EmployeeID())
	assert.ErrorIs(t, err, ErrPermissionDenied, "only admins reassign")

	_, err = f.svc.Assign(f.admin, inc.ID, f.manager.EmployeeID())
	require.NoError(t, err)

	got, err := f.svc.SaveResponse(f.manager, inc.ID, IncidentResponseInput{ResponseActions: "Zablokowano nadawcę"})
	require.NoError(t, err)
	assert.Equal(t, "Zablokowano nadawcę", got.ResponseActions)
	assert.Equal(t, models.IncidentReported, got.Status, "phase forms do not advance the status")
}

func TestIncidentService_AdvanceToClosedStampsOnce(t *testing.T) {
	f := newIncidentFixture(t)
	inc := f.report(t)

	var err error
	for _, want := range []models.IncidentStatus{models.IncidentAnalysis, models.IncidentResponse, models.IncidentAction} {
		inc, err = f.svc.Advance(f.admin, inc.ID)
		require.NoError(t, err)
		assert.Equal(t, want, inc.Status)
		assert.Nil(t, inc.ClosedAt)
	}

	inc, err = f.svc.Advance(f.admin, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentClosed, inc.Status)
	require.NotNil(t, inc.ClosedAt)
	closedAt := *inc.ClosedAt

	_, err = f.svc.Advance(f.admin, inc.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	time.Sleep(10 * time.Millisecond)
	again, err := f.svc.Close(f.admin, inc.ID, IncidentCloseInput{Conclusions: "Szkolenie"})
	require.NoError(t, err)
	require.NotNil(t, again.ClosedAt)
	assert.True(t, closedAt.Equal(*again.ClosedAt), "closed_at is stamped only once")
	assert.Equal(t, "Szkolenie", again.Conclusions)

	// report + the first close; re-closing stays silent
	assert.Equal(t, 2, f.notifier.count())
}

func TestIncidentService_CloseDirectly(t *testing.T) {
	f := newIncidentFixture(t)
	inc := f.report(t)

	closed, err := f.svc.Close(f.admin, inc.ID, IncidentCloseInput{Conclusions: "Fałszywy alarm"})
	require.NoError(t, err)
	assert.True(t, closed.IsClosed())
	require.NotNil(t, closed.ClosedAt)

	counts, err := f.svc.Counts()
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.IncidentClosed])
}

func TestIncidentService_AnalysisValidation(t *testing.T) {
	f := newIncidentFixture(t)
	inc := f.report(t)

	bad := models.Criticality("apocalyptic")
	_, err := f.svc.SaveAnalysis(f.admin, inc.ID, IncidentAnalysisInput{Severity: &bad})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "severity")

	high := models.CriticalityHigh
	cat := models.IncidentCategory("phishing")
	got, err := f.svc.SaveAnalysis(f.admin, inc.ID, IncidentAnalysisInput{IsSerious: true, Severity: &high, Category: &cat})
	require.NoError(t, err)
	assert.True(t, got.IsSerious)
	require.NotNil(t, got.Severity)
	assert.Equal(t, models.CriticalityHigh, *got.Severity)
}

func TestIncidentService_ReporterEditsOnlyWhileReported(t *testing.T) {
	f := newIncidentFixture(t)
	inc := f.report(t)

	in := IncidentReportInput{Title: "Phishing", Description: "Link do fałszywego logowania", OccurredAt: "2025-04-01"}
	got, err := f.svc.Update(f.reporter, inc.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Phishing", got.Title)

	_, err = f.svc.Advance(f.admin, inc.ID)
	require.NoError(t, err)
	_, err = f.svc.Update(f.reporter, inc.ID, in)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestIncidentService_AddNote(t *testing.T) {
	f := newIncidentFixture(t)
	inc := f.report(t)

	note, err := f.svc.AddNote(f.reporter, inc.ID, "", "Dodatkowe informacje")
	require.NoError(t, err)
	assert.Equal(t, models.IncidentNoteType("comment"), note.NoteType)

	_, err = f.svc.AddNote(f.outsider, inc.ID, "comment", "x")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.AddNote(f.reporter, inc.ID, "gossip", " ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	got, err := f.svc.Get(f.admin, inc.ID)
	require.NoError(t, err)
	assert.Len(t, got.Notes, 1)
}
