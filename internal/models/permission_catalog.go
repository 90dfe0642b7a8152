package models

// Names of the predefined permissions. Gates refer to these constants.
const (
	PermComplianceAdmin    = "Administrator deklaracji zgodności"
	PermComplianceOwner    = "Właściciel deklaracji zgodności"
	PermComplianceManager  = "Menedżer deklaracji zgodności"
	PermComplianceApprover = "Zatwierdzający deklaracje zgodności"

	PermDocumentsAdmin            = "Administrator dokumentów"
	PermDocumentsOwner            = "Właściciel dokumentów"
	PermDocumentsManager          = "Menedżer dokumentów"
	PermDocumentsApprover         = "Zatwierdzający dokumenty"
	PermDocumentsSigner           = "Podpisujący dokumenty"
	PermDocumentsVerifySignatures = "Weryfikujący podpisy elektroniczne"

	PermActivityLogView = "Przeglądanie dziennika zdarzeń"

	PermIncidentsViewAll = "Przeglądanie wszystkich incydentów bezpieczeństwa"
	PermIncidentsViewOwn = "Przeglądanie moich incydentów bezpieczeństwa"
	PermIncidentsAdmin   = "Administrator incydentów bezpieczeństwa"
	PermIncidentsManage  = "Zarządzanie przypisanymi incydentami bezpieczeństwa"

	PermAssetsAdmin = "Administrator rejestru aktywów"
	PermAssetsOwner = "Właściciel rejestru aktywów"
	PermAssetsView  = "Przeglądanie rejestru aktywów"

	PermDictionaryManage = "Zarządzanie słownikami wymagań norm i przepisów"
)

// Permission bundles used by route gates.
var (
	AssetViewPermissions = []string{PermAssetsAdmin, PermAssetsOwner, PermAssetsView}
	AssetEditPermissions = []string{PermAssetsAdmin, PermAssetsOwner}

	IncidentAnyPermissions     = []string{PermIncidentsViewOwn, PermIncidentsViewAll, PermIncidentsAdmin, PermIncidentsManage}
	IncidentViewAllPermissions = []string{PermIncidentsAdmin, PermIncidentsViewAll, PermIncidentsManage}
	IncidentManagePermissions  = []string{PermIncidentsAdmin, PermIncidentsManage}

	DocumentViewPermissions = []string{
		PermDocumentsAdmin, PermDocumentsOwner, PermDocumentsManager,
		PermDocumentsApprover, PermDocumentsSigner, PermDocumentsVerifySignatures,
	}
	DocumentEditPermissions     = []string{PermDocumentsAdmin, PermDocumentsOwner, PermDocumentsManager}
	DocumentApprovePermissions  = []string{PermDocumentsAdmin, PermDocumentsApprover}
	DocumentWorkflowPermissions = []string{PermDocumentsAdmin, PermDocumentsOwner, PermDocumentsManager, PermDocumentsApprover}

	SoAViewPermissions = []string{PermComplianceAdmin, PermComplianceOwner, PermComplianceManager, PermComplianceApprover}
	SoAEditPermissions = []string{PermComplianceAdmin, PermComplianceOwner, PermComplianceManager}
)

// SystemPermissions is the catalog installed by seed-permissions.
var SystemPermissions = []Permission{
	{Category: CategoryCompliance, Name: PermComplianceAdmin, Description: "Przeglądanie wszystkich deklaracji zgodności i zmiana ich właścicieli"},
	{Category: CategoryCompliance, Name: PermComplianceOwner, Description: "Pełne uprawnienia do tworzenia, edycji i zarządzania cyklem życia deklaracji zgodności"},
	{Category: CategoryCompliance, Name: PermComplianceManager, Description: "Zarządzanie przypisanymi deklaracjami zgodności - edycja, aktualizacja statusu i przesyłanie do zatwierdzenia"},
	{Category: CategoryCompliance, Name: PermComplianceApprover, Description: "Uprawnienia do zatwierdzania i odrzucania deklaracji zgodności przesyłanych do akceptacji"},

	{Category: CategoryDocuments, Name: PermDocumentsAdmin, Description: "Przeglądanie wszystkich dokumentów i zmiana ich właścicieli"},
	{Category: CategoryDocuments, Name: PermDocumentsOwner, Description: "Pełne uprawnienia do tworzenia, edycji, usuwania i zarządzania cyklem życia dokumentów"},
	{Category: CategoryDocuments, Name: PermDocumentsManager, Description: "Zarządzanie przypisanymi dokumentami, edycja, aktualizacja statusu i przesyłanie do zatwierdzenia"},
	{Category: CategoryDocuments, Name: PermDocumentsApprover, Description: "Uprawnienia do zatwierdzania i odrzucania dokumentów przesyłanych do akceptacji"},
	{Category: CategoryDocuments, Name: PermDocumentsSigner, Description: "Uprawnienia do podpisywania dokumentów"},
	{Category: CategoryDocuments, Name: PermDocumentsVerifySignatures, Description: "Uprawnienia do weryfikacji podpisów elektronicznych w module dokumentów"},

	{Category: CategoryActivityLog, Name: PermActivityLogView, Description: "Przeglądanie wszystkich zdarzeń w rejestrze"},

	{Category: CategoryIncidents, Name: PermIncidentsViewAll, Description: "Dostęp do przeglądania wszystkich incydentów bezpieczeństwa bez możliwości ich edycji"},
	{Category: CategoryIncidents, Name: PermIncidentsViewOwn, Description: "Dostęp do przeglądania incydentów bezpieczeństwa, które zostały przez mnie zgłoszone"},
	{Category: CategoryIncidents, Name: PermIncidentsAdmin, Description: "Przeglądanie wszystkich incydentów bezpieczeństwa i zmiana ich właścicieli"},
	{Category: CategoryIncidents, Name: PermIncidentsManage, Description: "Pełne zarządzanie incydentami bezpieczeństwa, do których jestem przypisany jako właściciel lub menedżer"},

	{Category: CategoryAssets, Name: PermAssetsAdmin, Description: "Przeglądanie wszystkich aktywów i zmiana ich właścicieli, tworzenie grup aktywów"},
	{Category: CategoryAssets, Name: PermAssetsOwner, Description: "Pełne uprawnienia do tworzenia, edycji, usuwania i zarządzania aktywami w rejestrze"},
	{Category: CategoryAssets, Name: PermAssetsView, Description: "Przeglądanie wszystkich aktywów w rejestrze bez możliwości edycji"},

	{Category: CategoryDictionary, Name: PermDictionaryManage, Description: "Pełne uprawnienia do tworzenia, edycji i usuwania słowników wymagań norm i przepisów"},
}
