package source

// Patient is the narrow projection of patients.csv.
type Patient struct {
	ID        string
	BirthDate string
	SSN       string
	Race      string
	Ethnicity string
	Gender    string
	Street    string
	City      string
	State     string
	County    string
	Zip       string
	Homeless  string
}

// Encounter is the narrow projection of encounters.csv.
type Encounter struct {
	ID             string
	Start          string
	Stop           string
	PatientID      string
	OrganizationID string
	PayerID        string
	Class          string
	TotalCost      string
	ReasonCode     string
}

// Procedure is one procedures.csv row.
type Procedure struct {
	EncounterID string
	Start       string
	Code        string
}

// Diagnosis is one diagnosis line of the CPCDS claims export.
type Diagnosis struct {
	EncounterID        string
	CoverageID         string
	Code               string
	PresentOnAdmission string
}

type Coverage struct {
	ID   string
	Type string
}

type Organization struct {
	ID   string
	Name string
	Zip  string
}

type Payer struct {
	ID        string
	Name      string
	Ownership string
}

type Observation struct {
	EncounterID string
	Description string
	Value       string
}

// Tables holds every source table fully materialized, in file order.
type Tables struct {
	Patients      []Patient
	Encounters    []Encounter
	Procedures    []Procedure
	Diagnoses     []Diagnosis
	Coverages     []Coverage
	Organizations []Organization
	Payers        []Payer
	Observations  []Observation
}
