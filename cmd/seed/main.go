package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/config"
	"github.com/Czechuuuu/szbi/internal/database"
	"github.com/Czechuuuu/szbi/internal/logger"
	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

type seedDomain struct {
	code, name string
	objectives []seedObjective
}

type seedObjective struct {
	code, name   string
	requirements [][2]string
}

var isoCatalogue = []seedDomain{
	{"A.5", "Polityki bezpieczeństwa informacji", []seedObjective{
		{"A.5.1", "Kierunki bezpieczeństwa informacji określone przez kierownictwo", [][2]string{
			{"A.5.1.1", "Polityki bezpieczeństwa informacji"},
			{"A.5.1.2", "Przegląd polityk bezpieczeństwa informacji"},
		}},
	}},
	{"A.8", "Zarządzanie aktywami", []seedObjective{
		{"A.8.1", "Odpowiedzialność za aktywa", [][2]string{
			{"A.8.1.1", "Inwentaryzacja aktywów"},
			{"A.8.1.2", "Własność aktywów"},
			{"A.8.1.3", "Akceptowalne użycie aktywów"},
		}},
		{"A.8.2", "Klasyfikacja informacji", [][2]string{
			{"A.8.2.1", "Klasyfikacja informacji"},
		}},
	}},
	{"A.16", "Zarządzanie incydentami bezpieczeństwa informacji", []seedObjective{
		{"A.16.1", "Zarządzanie incydentami i udoskonaleniami", [][2]string{
			{"A.16.1.1", "Odpowiedzialności i procedury"},
			{"A.16.1.2", "Zgłaszanie zdarzeń związanych z bezpieczeństwem informacji"},
		}},
	}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger.Init(true, nil)
	log := logger.Component("seed")

	db, err := database.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}

	if err := seed(db, cfg, log); err != nil {
		log.WithError(err).Fatal("seed failed")
	}
	log.Info("seed completed")
}

func seed(db *gorm.DB, cfg config.Config, log *logrus.Entry) error {
	activity := services.NewActivityService(db, cfg.ActivityPageSize)
	actor := services.SystemActor()

	perms := services.NewPermissionService(db, activity)
	n, err := perms.SeedSystemPermissions(actor)
	if err != nil {
		return fmt.Errorf("permissions: %w", err)
	}
	log.WithField("created", n).Info("permissions seeded")

	var existing int64
	if err := db.Model(&models.Department{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		log.Info("directory already populated, skipping demo data")
		return nil
	}

	directory := services.NewDirectoryService(db, activity)
	if _, err := directory.UpdateOrganization(actor, services.OrganizationInput{Name: "Przykładowa Spółka Sp. z o.o.", ShortName: "PS"}); err != nil {
		return fmt.Errorf("organization: %w", err)
	}

	it, err := directory.CreateDepartment(actor, services.DepartmentInput{Name: "Dział IT"})
	if err != nil {
		return fmt.Errorf("department: %w", err)
	}
	security, err := directory.CreateDepartment(actor, services.DepartmentInput{Name: "Bezpieczeństwo informacji", ParentID: &it.ID})
	if err != nil {
		return fmt.Errorf("department: %w", err)
	}

	admin, err := directory.CreatePosition(actor, services.PositionInput{Name: "Administrator systemów", DepartmentID: &it.ID})
	if err != nil {
		return fmt.Errorf("position: %w", err)
	}
	officer, err := directory.CreatePosition(actor, services.PositionInput{Name: "Pełnomocnik ds. SZBI", DepartmentID: &security.ID})
	if err != nil {
		return fmt.Errorf("position: %w", err)
	}

	if _, err := directory.CreateEmployee(actor, services.EmployeeInput{
		FirstName: "Jan", LastName: "Kowalski", Email: "jan.kowalski@example.com", Password: "zmien-mnie-123",
		DepartmentID: &it.ID, PositionIDs: []uint{admin.ID},
	}); err != nil {
		return fmt.Errorf("employee: %w", err)
	}
	if _, err := directory.CreateEmployee(actor, services.EmployeeInput{
		FirstName: "Anna", LastName: "Nowak", Email: "anna.nowak@example.com", Password: "zmien-mnie-123",
		DepartmentID: &security.ID, PositionIDs: []uint{officer.ID}, IsStaff: true,
	}); err != nil {
		return fmt.Errorf("employee: %w", err)
	}

	group, err := perms.CreateGroup(actor, services.GroupInput{
		Name:          "Pełnomocnicy SZBI",
		PermissionIDs: permissionIDs(db, models.PermDocumentsAdmin, models.PermComplianceAdmin, models.PermIncidentsAdmin),
	})
	if err != nil {
		return fmt.Errorf("group: %w", err)
	}
	if _, err := perms.AssignToPosition(actor, officer.ID, group.ID); err != nil {
		return fmt.Errorf("assign group: %w", err)
	}

	assets := services.NewAssetService(db, activity)
	for _, name := range []string{"Sprzęt komputerowy", "Oprogramowanie", "Dane"} {
		if _, err := assets.CreateCategory(actor, services.AssetCategoryInput{Name: name}); err != nil {
			return fmt.Errorf("asset category: %w", err)
		}
	}

	return seedDictionary(services.NewDictionaryService(db, activity), actor, log)
}

func seedDictionary(dict *services.DictionaryService, actor services.Actor, log *logrus.Entry) error {
	var created int
	for _, d := range isoCatalogue {
		domain, err := dict.CreateDomain(actor, services.DomainInput{Code: d.code, Name: d.name})
		if err != nil {
			if errors.Is(err, services.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("domain %s: %w", d.code, err)
		}
		for _, o := range d.objectives {
			objective, err := dict.CreateObjective(actor, services.ObjectiveInput{DomainID: domain.ID, Code: o.code, Name: o.name})
			if err != nil {
				return fmt.Errorf("objective %s: %w", o.code, err)
			}
			for _, r := range o.requirements {
				if _, err := dict.CreateRequirement(actor, services.RequirementInput{ObjectiveID: objective.ID, ISOID: r[0], Name: r[1]}); err != nil {
					return fmt.Errorf("requirement %s: %w", r[0], err)
				}
				created++
			}
		}
	}
	log.WithField("requirements", created).Info("ISO dictionary seeded")
	return nil
}

func permissionIDs(db *gorm.DB, names ...string) []uint {
	var ids []uint
	db.Model(&models.Permission{}).Where("name IN ?", names).Pluck("id", &ids)
	return ids
}
