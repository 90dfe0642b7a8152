package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/metrics"
	"github.com/Czechuuuu/szbi/internal/models"
)

// OnDelete says what happens to rows referencing a deleted record.
type OnDelete int

const (
	Protect OnDelete = iota
	Cascade
	SetNull
)

func (o OnDelete) String() string {
	switch o {
	case Protect:
		return "protect"
	case Cascade:
		return "cascade"
	case SetNull:
		return "set_null"
	default:
		return "unknown"
	}
}

// Relation is one reverse reference to an entity. ByUser relations match the
// login account linked to the entity instead of the entity's own id. When
// Child is set the referencing rows are themselves entities and are deleted
// through their own relation table.
type Relation struct {
	Name   string
	Table  string
	Column string
	Rule   OnDelete
	ByUser bool
	Child  string
}

const (
	EntityDepartment      = "department"
	EntityPosition        = "position"
	EntityEmployee        = "employee"
	EntityPermission      = "permission"
	EntityPermissionGroup = "permission_group"
	EntityAssetCategory   = "asset_category"
	EntityAsset           = "asset"
	EntityIncident        = "incident"
	EntityDocument        = "document"
	EntityISODomain       = "iso_domain"
	EntityISOObjective    = "iso_objective"
	EntityISORequirement  = "iso_requirement"
	EntitySoADeclaration  = "soa_declaration"
	EntitySoAEntry        = "soa_entry"
)

type entityDef struct {
	table     string
	category  models.ActivityCategory
	notFound  error
	newModel  func() fmt.Stringer
	relations []Relation
}

var deletionRegistry = map[string]entityDef{
	EntityDepartment: {
		table:    "departments",
		category: models.ActivityDepartment,
		notFound: ErrDepartmentNotFound,
		newModel: func() fmt.Stringer { return &models.Department{} },
		relations: []Relation{
			{Name: "Działy podrzędne", Table: "departments", Column: "parent_id", Rule: Cascade, Child: EntityDepartment},
			{Name: "Stanowiska", Table: "positions", Column: "department_id", Rule: SetNull},
			{Name: "Pracownicy", Table: "employees", Column: "department_id", Rule: SetNull},
			{Name: "Uprawnienia działu", Table: "department_permissions", Column: "department_id", Rule: Cascade},
			{Name: "Aktywa", Table: "assets", Column: "department_id", Rule: SetNull},
		},
	},
	EntityPosition: {
		table:    "positions",
		category: models.ActivityPosition,
		notFound: ErrPositionNotFound,
		newModel: func() fmt.Stringer { return &models.Position{} },
		relations: []Relation{
			{Name: "Przypisania pracowników", Table: "employee_positions", Column: "position_id", Rule: Cascade},
			{Name: "Uprawnienia stanowiska", Table: "position_permissions", Column: "position_id", Rule: Cascade},
		},
	},
	EntityEmployee: {
		table:    "employees",
		category: models.ActivityEmployee,
		notFound: ErrEmployeeNotFound,
		newModel: func() fmt.Stringer { return &models.Employee{} },
		relations: []Relation{
			{Name: "Stanowiska pracownika", Table: "employee_positions", Column: "employee_id", Rule: Cascade},
			{Name: "Grupy uprawnień pracownika", Table: "employee_permission_groups", Column: "employee_id", Rule: Cascade},
			{Name: "Aktywa (właściciel)", Table: "assets", Column: "owner_id", Rule: Protect},
			{Name: "Dokumenty (właściciel)", Table: "documents", Column: "owner_id", Rule: Protect},
			{Name: "Deklaracje zgodności (właściciel)", Table: "soa_declarations", Column: "owner_id", Rule: Protect},
			{Name: "Incydenty (przypisane)", Table: "incidents", Column: "assigned_to_id", Rule: SetNull},
			{Name: "Wpisy deklaracji (osoba odpowiedzialna)", Table: "soa_entries", Column: "responsible_person_id", Rule: SetNull},

			{Name: "Incydenty (zgłaszający)", Table: "incidents", Column: "reporter_id", Rule: Protect, ByUser: true},
			{Name: "Historia dokumentów", Table: "document_logs", Column: "user_id", Rule: Protect, ByUser: true},
			{Name: "Wersje dokumentów", Table: "document_versions", Column: "created_by_id", Rule: Protect, ByUser: true},
			{Name: "Historia aktywów", Table: "asset_logs", Column: "user_id", Rule: SetNull, ByUser: true},
			{Name: "Historia incydentów", Table: "incident_logs", Column: "user_id", Rule: SetNull, ByUser: true},
			{Name: "Historia deklaracji", Table: "soa_logs", Column: "user_id", Rule: SetNull, ByUser: true},
			{Name: "Notatki incydentów", Table: "incident_notes", Column: "author_id", Rule: SetNull, ByUser: true},
			{Name: "Potwierdzenia zapoznania", Table: "document_acknowledgements", Column: "user_id", Rule: Cascade, ByUser: true},
			{Name: "Aktywa (utworzone)", Table: "assets", Column: "created_by_id", Rule: SetNull, ByUser: true},
			{Name: "Wymagania ISO (utworzone)", Table: "iso_requirements", Column: "created_by_id", Rule: SetNull, ByUser: true},
			{Name: "Wymagania ISO (zmienione)", Table: "iso_requirements", Column: "updated_by_id", Rule: SetNull, ByUser: true},
			{Name: "Udostępnienia dokumentów", Table: "document_accesses", Column: "granted_by_id", Rule: SetNull, ByUser: true},
			{Name: "Powiązania ISO dokumentów", Table: "document_iso_mappings", Column: "created_by_id", Rule: SetNull, ByUser: true},
			{Name: "Deklaracje zgodności (utworzone)", Table: "soa_declarations", Column: "created_by_id", Rule: SetNull, ByUser: true},
			{Name: "Organizacje (utworzone)", Table: "organizations", Column: "created_by_id", Rule: SetNull, ByUser: true},
		},
	},
	EntityPermission: {
		table:    "permissions",
		category: models.ActivityPermission,
		notFound: ErrPermissionNotFound,
		newModel: func() fmt.Stringer { return &models.Permission{} },
		relations: []Relation{
			{Name: "Grupy uprawnień", Table: "permission_group_permissions", Column: "permission_id", Rule: Cascade},
		},
	},
	EntityPermissionGroup: {
		table:    "permission_groups",
		category: models.ActivityPermissionGroup,
		notFound: ErrPermissionGroupNotFound,
		newModel: func() fmt.Stringer { return &models.PermissionGroup{} },
		relations: []Relation{
			{Name: "Uprawnienia w grupie", Table: "permission_group_permissions", Column: "permission_group_id", Rule: Cascade},
			{Name: "Przypisania do stanowisk", Table: "position_permissions", Column: "permission_group_id", Rule: Cascade},
			{Name: "Przypisania do działów", Table: "department_permissions", Column: "permission_group_id", Rule: Cascade},
			{Name: "Przypisania do pracowników", Table: "employee_permission_groups", Column: "permission_group_id", Rule: Cascade},
			{Name: "Udostępnienia dokumentów", Table: "document_accesses", Column: "permission_group_id", Rule: Cascade},
		},
	},
	EntityAssetCategory: {
		table:    "asset_categories",
		category: models.ActivityAsset,
		notFound: ErrAssetCategoryNotFound,
		newModel: func() fmt.Stringer { return &models.AssetCategory{} },
		relations: []Relation{
			{Name: "Podkategorie", Table: "asset_categories", Column: "parent_id", Rule: Cascade, Child: EntityAssetCategory},
			{Name: "Aktywa", Table: "assets", Column: "category_id", Rule: Protect},
		},
	},
	EntityAsset: {
		table:    "assets",
		category: models.ActivityAsset,
		notFound: ErrAssetNotFound,
		newModel: func() fmt.Stringer { return &models.Asset{} },
		relations: []Relation{
			{Name: "Historia aktywa", Table: "asset_logs", Column: "asset_id", Rule: Cascade},
			{Name: "Powiązania z incydentami", Table: "incident_assets", Column: "asset_id", Rule: Cascade},
		},
	},
	EntityIncident: {
		table:    "incidents",
		category: models.ActivityIncident,
		notFound: ErrIncidentNotFound,
		newModel: func() fmt.Stringer { return &models.Incident{} },
		relations: []Relation{
			{Name: "Notatki", Table: "incident_notes", Column: "incident_id", Rule: Cascade},
			{Name: "Historia incydentu", Table: "incident_logs", Column: "incident_id", Rule: Cascade},
			{Name: "Aktywa, których dotyczy", Table: "incident_assets", Column: "incident_id", Rule: Cascade},
		},
	},
	EntityDocument: {
		table:    "documents",
		category: models.ActivityDocument,
		notFound: ErrDocumentNotFound,
		newModel: func() fmt.Stringer { return &models.Document{} },
		relations: []Relation{
			{Name: "Wersje", Table: "document_versions", Column: "document_id", Rule: Cascade},
			{Name: "Historia dokumentu", Table: "document_logs", Column: "document_id", Rule: Cascade},
			{Name: "Udostępnienia", Table: "document_accesses", Column: "document_id", Rule: Cascade},
			{Name: "Potwierdzenia zapoznania", Table: "document_acknowledgements", Column: "document_id", Rule: Cascade},
			{Name: "Powiązania ISO", Table: "document_iso_mappings", Column: "document_id", Rule: Cascade},
			{Name: "Wpisy deklaracji zgodności", Table: "soa_entry_documents", Column: "document_id", Rule: Cascade},
		},
	},
	EntityISODomain: {
		table:    "iso_domains",
		category: models.ActivityDictionary,
		notFound: ErrDomainNotFound,
		newModel: func() fmt.Stringer { return &models.ISODomain{} },
		relations: []Relation{
			{Name: "Cele stosowania zabezpieczeń", Table: "iso_objectives", Column: "domain_id", Rule: Cascade, Child: EntityISOObjective},
		},
	},
	EntityISOObjective: {
		table:    "iso_objectives",
		category: models.ActivityDictionary,
		notFound: ErrObjectiveNotFound,
		newModel: func() fmt.Stringer { return &models.ISOObjective{} },
		relations: []Relation{
			{Name: "Wymagania", Table: "iso_requirements", Column: "objective_id", Rule: Cascade, Child: EntityISORequirement},
		},
	},
	EntityISORequirement: {
		table:    "iso_requirements",
		category: models.ActivityDictionary,
		notFound: ErrRequirementNotFound,
		newModel: func() fmt.Stringer { return &models.ISORequirement{} },
		relations: []Relation{
			{Name: "Powiązania z dokumentami", Table: "document_iso_mappings", Column: "iso_requirement_id", Rule: Cascade},
			{Name: "Wpisy deklaracji zgodności", Table: "soa_entries", Column: "requirement_id", Rule: Protect},
		},
	},
	EntitySoADeclaration: {
		table:    "soa_declarations",
		category: models.ActivitySoA,
		notFound: ErrDeclarationNotFound,
		newModel: func() fmt.Stringer { return &models.SoADeclaration{} },
		relations: []Relation{
			{Name: "Wpisy", Table: "soa_entries", Column: "declaration_id", Rule: Cascade, Child: EntitySoAEntry},
			{Name: "Historia deklaracji", Table: "soa_logs", Column: "declaration_id", Rule: Cascade},
		},
	},
	EntitySoAEntry: {
		table:    "soa_entries",
		category: models.ActivitySoA,
		notFound: ErrEntryNotFound,
		newModel: func() fmt.Stringer { return &models.SoAEntry{} },
		relations: []Relation{
			{Name: "Powiązane dokumenty", Table: "soa_entry_documents", Column: "entry_id", Rule: Cascade},
		},
	},
}

// Relations returns the declared reverse relations of entity.
func Relations(entity string) []Relation {
	def, ok := deletionRegistry[entity]
	if !ok {
		return nil
	}
	out := make([]Relation, len(def.relations))
	copy(out, def.relations)
	return out
}

// RelationCount is the number of rows one relation holds for a record.
type RelationCount struct {
	Relation string `json:"relation"`
	Count    int64  `json:"count"`
}

// DeletionReport classifies everything a delete would touch.
type DeletionReport struct {
	Entity    string          `json:"entity"`
	ID        uint            `json:"id"`
	Repr      string          `json:"repr"`
	Blocking  []RelationCount `json:"blocking"`
	Cascading []RelationCount `json:"cascading"`
	Nullified []RelationCount `json:"nullified"`
}

// CanDelete reports whether no blocking reference exists.
func (r *DeletionReport) CanDelete() bool { return len(r.Blocking) == 0 }

// DeleteBlockedError is returned when protected references prevent a delete.
type DeleteBlockedError struct {
	Entity   string
	Repr     string
	Blocking []RelationCount
}

func (e *DeleteBlockedError) Error() string {
	var total int64
	names := make([]string, 0, len(e.Blocking))
	for _, b := range e.Blocking {
		total += b.Count
		names = append(names, fmt.Sprintf("%s: %d", b.Relation, b.Count))
	}
	return fmt.Sprintf("cannot delete %s %q: referenced by %d records (%s)", e.Entity, e.Repr, total, strings.Join(names, ", "))
}

// DeletionService checks and performs deletes according to the relation
// tables above, then records them in the activity log.
type DeletionService struct {
	db       *gorm.DB
	activity *ActivityService
}

func NewDeletionService(db *gorm.DB, activity *ActivityService) *DeletionService {
	return &DeletionService{db: db, activity: activity}
}

// Inspect reports the references that a delete of entity id would meet.
func (s *DeletionService) Inspect(entity string, id uint) (*DeletionReport, error) {
	def, ok := deletionRegistry[entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
	rec, userID, err := loadRecord(s.db, def, id)
	if err != nil {
		return nil, err
	}

	report := &DeletionReport{Entity: entity, ID: id, Repr: rec.String()}
	acc := map[string]*RelationCount{}
	var order []string
	add := func(rule OnDelete, name string, n int64) {
		key := rule.String() + "|" + name
		rc, seen := acc[key]
		if !seen {
			rc = &RelationCount{Relation: name}
			acc[key] = rc
			order = append(order, key)
		}
		rc.Count += n
	}
	if err := s.collect(s.db, entity, id, userID, map[string]bool{}, add); err != nil {
		return nil, err
	}

	for _, key := range order {
		rc := *acc[key]
		switch {
		case strings.HasPrefix(key, Protect.String()+"|"):
			report.Blocking = append(report.Blocking, rc)
		case strings.HasPrefix(key, Cascade.String()+"|"):
			report.Cascading = append(report.Cascading, rc)
		default:
			report.Nullified = append(report.Nullified, rc)
		}
	}
	return report, nil
}

func (s *DeletionService) collect(tx *gorm.DB, entity string, id, userID uint, visited map[string]bool, add func(OnDelete, string, int64)) error {
	key := fmt.Sprintf("%s:%d", entity, id)
	if visited[key] {
		return nil
	}
	visited[key] = true

	for _, rel := range deletionRegistry[entity].relations {
		match, skip := matchValue(rel, id, userID)
		if skip {
			continue
		}
		var n int64
		if err := tx.Table(rel.Table).Where(rel.Column+" = ?", match).Count(&n).Error; err != nil {
			return fmt.Errorf("count %s.%s: %w", rel.Table, rel.Column, err)
		}
		if n == 0 {
			continue
		}
		add(rel.Rule, rel.Name, n)

		if rel.Rule == Cascade && rel.Child != "" {
			childIDs, err := referencingIDs(tx, rel, match)
			if err != nil {
				return err
			}
			for _, childID := range childIDs {
				childUser, err := linkedUserID(tx, rel.Child, childID)
				if err != nil {
					return err
				}
				if err := s.collect(tx, rel.Child, childID, childUser, visited, add); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Delete removes entity id when no blocking reference exists. Cascading and
// nullifying relations are applied in one transaction, and the delete is
// recorded with the representation captured beforehand.
func (s *DeletionService) Delete(actor Actor, entity string, id uint) error {
	def, ok := deletionRegistry[entity]
	if !ok {
		return fmt.Errorf("unknown entity %q", entity)
	}

	report, err := s.Inspect(entity, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.IncDeletion(entity, "error")
		}
		return err
	}
	if !report.CanDelete() {
		metrics.IncDeletion(entity, "blocked")
		return &DeleteBlockedError{Entity: entity, Repr: report.Repr, Blocking: report.Blocking}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.remove(tx, entity, id, map[string]bool{})
	})
	if err != nil {
		var blocked *DeleteBlockedError
		if errors.As(err, &blocked) {
			metrics.IncDeletion(entity, "blocked")
			return err
		}
		metrics.IncDeletion(entity, "error")
		return fmt.Errorf("delete %s %d: %w", entity, id, err)
	}
	metrics.IncDeletion(entity, "deleted")

	details := map[string]interface{}{}
	for _, c := range report.Cascading {
		details["cascade: "+c.Relation] = c.Count
	}
	for _, c := range report.Nullified {
		details["set null: "+c.Relation] = c.Count
	}
	s.activity.Record(actor, ActivityEntry{
		Action:      models.ActionDelete,
		Category:    def.category,
		ObjectType:  entity,
		ObjectID:    id,
		ObjectRepr:  report.Repr,
		Description: fmt.Sprintf("Usunięto: %s", report.Repr),
		Details:     details,
	})
	return nil
}

func (s *DeletionService) remove(tx *gorm.DB, entity string, id uint, visited map[string]bool) error {
	key := fmt.Sprintf("%s:%d", entity, id)
	if visited[key] {
		return nil
	}
	visited[key] = true

	def := deletionRegistry[entity]
	rec, userID, err := loadRecord(tx, def, id)
	if err != nil {
		return err
	}

	for _, rel := range def.relations {
		match, skip := matchValue(rel, id, userID)
		if skip {
			continue
		}
		switch rel.Rule {
		case Protect:
			var n int64
			if err := tx.Table(rel.Table).Where(rel.Column+" = ?", match).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return &DeleteBlockedError{Entity: entity, Repr: rec.String(), Blocking: []RelationCount{{Relation: rel.Name, Count: n}}}
			}
		case Cascade:
			if rel.Child != "" {
				childIDs, err := referencingIDs(tx, rel, match)
				if err != nil {
					return err
				}
				for _, childID := range childIDs {
					if err := s.remove(tx, rel.Child, childID, visited); err != nil {
						return err
					}
				}
				continue
			}
			if err := tx.Exec("DELETE FROM "+rel.Table+" WHERE "+rel.Column+" = ?", match).Error; err != nil {
				return fmt.Errorf("cascade %s.%s: %w", rel.Table, rel.Column, err)
			}
		case SetNull:
			if err := tx.Exec("UPDATE "+rel.Table+" SET "+rel.Column+" = NULL WHERE "+rel.Column+" = ?", match).Error; err != nil {
				return fmt.Errorf("set null %s.%s: %w", rel.Table, rel.Column, err)
			}
		}
	}

	if err := tx.Exec("DELETE FROM "+def.table+" WHERE id = ?", id).Error; err != nil {
		return err
	}
	if entity == EntityEmployee && userID != 0 {
		if err := tx.Exec("DELETE FROM users WHERE id = ?", userID).Error; err != nil {
			return fmt.Errorf("delete linked account: %w", err)
		}
	}
	return nil
}

func loadRecord(tx *gorm.DB, def entityDef, id uint) (fmt.Stringer, uint, error) {
	rec := def.newModel()
	if err := tx.First(rec, id).Error; err != nil {
		return nil, 0, translate(err, def.notFound)
	}
	var userID uint
	if e, ok := rec.(*models.Employee); ok {
		userID = e.UserID
	}
	return rec, userID, nil
}

func linkedUserID(tx *gorm.DB, entity string, id uint) (uint, error) {
	if entity != EntityEmployee {
		return 0, nil
	}
	var e models.Employee
	if err := tx.Select("id", "user_id").First(&e, id).Error; err != nil {
		return 0, translate(err, ErrEmployeeNotFound)
	}
	return e.UserID, nil
}

func matchValue(rel Relation, id, userID uint) (uint, bool) {
	if rel.ByUser {
		return userID, userID == 0
	}
	return id, false
}

func referencingIDs(tx *gorm.DB, rel Relation, match uint) ([]uint, error) {
	var ids []uint
	if err := tx.Table(rel.Table).Where(rel.Column+" = ?", match).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", rel.Table, err)
	}
	return ids, nil
}
