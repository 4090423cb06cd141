package source

// Column binds a semantic field to the header names it may appear under and
// the position it held in the reference export.
type Column struct {
	Field    string
	Headers  []string
	Index    int
	Required bool
}

// TableSpec describes one source file and the columns the pipeline reads from it.
type TableSpec struct {
	Name     string
	Path     string // relative to the generator output directory
	Version  string
	Required bool
	Columns  []Column
}

const (
	syntheaVersion = "synthea-3"
	cpcdsVersion   = "cpcds-1"
)

var PatientsSpec = TableSpec{
	Name:     "patients",
	Path:     "csv/patients.csv",
	Version:  syntheaVersion,
	Required: true,
	Columns: []Column{
		{Field: "id", Headers: []string{"Id"}, Index: 0, Required: true},
		{Field: "birthdate", Headers: []string{"BIRTHDATE"}, Index: 1, Required: true},
		{Field: "ssn", Headers: []string{"SSN"}, Index: 3},
		{Field: "race", Headers: []string{"RACE"}, Index: 12},
		{Field: "ethnicity", Headers: []string{"ETHNICITY"}, Index: 13},
		{Field: "gender", Headers: []string{"GENDER"}, Index: 14},
		{Field: "address", Headers: []string{"ADDRESS"}, Index: 16},
		{Field: "city", Headers: []string{"CITY"}, Index: 17},
		{Field: "state", Headers: []string{"STATE"}, Index: 18},
		{Field: "county", Headers: []string{"COUNTY"}, Index: 19},
		{Field: "zip", Headers: []string{"ZIP"}, Index: 21},
		{Field: "homeless", Headers: []string{"HOMELESS"}, Index: -1},
	},
}

var EncountersSpec = TableSpec{
	Name:     "encounters",
	Path:     "csv/encounters.csv",
	Version:  syntheaVersion,
	Required: true,
	Columns: []Column{
		{Field: "id", Headers: []string{"Id"}, Index: 0, Required: true},
		{Field: "start", Headers: []string{"START"}, Index: 1, Required: true},
		{Field: "stop", Headers: []string{"STOP"}, Index: 2, Required: true},
		{Field: "patient", Headers: []string{"PATIENT"}, Index: 3, Required: true},
		{Field: "organization", Headers: []string{"ORGANIZATION"}, Index: 4, Required: true},
		{Field: "payer", Headers: []string{"PAYER"}, Index: 6, Required: true},
		{Field: "class", Headers: []string{"ENCOUNTERCLASS"}, Index: 7, Required: true},
		{Field: "total_cost", Headers: []string{"TOTAL_CLAIM_COST"}, Index: 11},
		{Field: "reason_code", Headers: []string{"REASONCODE"}, Index: 13},
	},
}

var ProceduresSpec = TableSpec{
	Name:    "procedures",
	Path:    "csv/procedures.csv",
	Version: syntheaVersion,
	Columns: []Column{
		{Field: "start", Headers: []string{"START", "DATE"}, Index: 0, Required: true},
		{Field: "encounter", Headers: []string{"ENCOUNTER"}, Index: 3, Required: true},
		{Field: "code", Headers: []string{"CODE"}, Index: 4, Required: true},
	},
}

var ObservationsSpec = TableSpec{
	Name:    "observations",
	Path:    "csv/observations.csv",
	Version: syntheaVersion,
	Columns: []Column{
		{Field: "encounter", Headers: []string{"ENCOUNTER"}, Index: 2, Required: true},
		{Field: "description", Headers: []string{"DESCRIPTION"}, Index: 5, Required: true},
		{Field: "value", Headers: []string{"VALUE"}, Index: 6, Required: true},
	},
}

var OrganizationsSpec = TableSpec{
	Name:     "organizations",
	Path:     "csv/organizations.csv",
	Version:  syntheaVersion,
	Required: true,
	Columns: []Column{
		{Field: "id", Headers: []string{"Id"}, Index: 0, Required: true},
		{Field: "name", Headers: []string{"NAME"}, Index: 1, Required: true},
		{Field: "zip", Headers: []string{"ZIP"}, Index: -1},
	},
}

var PayersSpec = TableSpec{
	Name:     "payers",
	Path:     "csv/payers.csv",
	Version:  syntheaVersion,
	Required: true,
	Columns: []Column{
		{Field: "id", Headers: []string{"Id"}, Index: 0, Required: true},
		{Field: "name", Headers: []string{"NAME"}, Index: 1, Required: true},
		{Field: "ownership", Headers: []string{"OWNERSHIP"}, Index: 2, Required: true},
	},
}

var ClaimsSpec = TableSpec{
	Name:    "claims",
	Path:    "cpcds/CPCDS_Claims.csv",
	Version: cpcdsVersion,
	Columns: []Column{
		{Field: "encounter", Headers: []string{"Claim unique identifier", "Encounter ID", "ENCOUNTER"}, Index: 8, Required: true},
		{Field: "coverage", Headers: []string{"Coverage id", "Coverage ID", "COVERAGE"}, Index: 21, Required: true},
		{Field: "code", Headers: []string{"Diagnosis code", "DIAGNOSIS_CODE"}, Index: 88, Required: true},
		{Field: "poa", Headers: []string{"Present on admission", "Diagnosis present on admission", "POA"}, Index: 90},
	},
}

var CoveragesSpec = TableSpec{
	Name:    "coverages",
	Path:    "cpcds/CPCDS_Coverages.csv",
	Version: cpcdsVersion,
	Columns: []Column{
		{Field: "id", Headers: []string{"Coverage id", "Coverage ID", "Id"}, Index: 0, Required: true},
		{Field: "type", Headers: []string{"Coverage type", "Type"}, Index: 4, Required: true},
	},
}

// Specs lists every table in load order.
var Specs = []TableSpec{
	PatientsSpec,
	EncountersSpec,
	OrganizationsSpec,
	PayersSpec,
	ProceduresSpec,
	ClaimsSpec,
	CoveragesSpec,
	ObservationsSpec,
}
