package record

import "strconv"

// Field keys shared by the assembler, the synthetic generator and the layouts.
// Keys follow the HCAI field ids where the standard defines one.
const (
	TypeOfCare       = "typcare"
	FacilityID       = "oshpd_id"
	HospitalZip      = "hplzip"
	DataSetID        = "data_id"
	PatientIDNumber  = "pat_id"
	FacilityName     = "facility_name"
	DateOfBirth      = "bthdate"
	DateOfBirthRaw   = "dob_raw"
	AgeDaysAdmit     = "agdyadm"
	AgeDaysDisch     = "agdydsch"
	AgeYearsAdmit    = "agyradm"
	AgeYearsDisch    = "agyrdsch"
	AgeRangeAdmit    = "agecatadm"
	AgeRangeDisch    = "agecatdsch"
	AgeRangeDisch10  = "agecatdsch10"
	Sex              = "sex"
	Ethnicity        = "ethncty"
	Race             = "race1"
	AdmitDate        = "admtdate"
	AdmitWeekday     = "admtday"
	AdmitMonth       = "admtmth"
	AdmitQuarter     = "qtr_adm"
	AdmitYear        = "admtyr"
	DischDate        = "dschdate"
	DischMonth       = "mth_dsch"
	DischQuarter     = "qtr_dsch"
	DischYear        = "dsch_yr"
	Counter          = "counter"
	LengthOfStay     = "los"
	AdjLengthOfStay  = "los_adj"
	PointOfOrigin    = "srcpo_ns"
	RouteOfAdmission = "srcroute_ns"
	TypeOfAdmission  = "admtype_ns"
	MDC              = "MDC"
	MSDRG            = "MSDRG"

	PrincipalDiagnosis = "diag_p"
	PrincipalPOA       = "poa_p"
	DiagnosisCodes     = "diag_codes"
	POAList            = "poa_list"

	PrincipalProcCode = "proc_p"
	PrincipalProcDate = "proc_pdt"
	PrincipalProcDays = "proc_pdy"
	ProcedureCodes    = "proc_codes"
	ProcedureDates    = "proc_dates"

	SSN             = "ssn"
	RecordLinkage   = "rln"
	Disposition     = "disp"
	TotalCharges    = "charge"
	AbstractRecord  = "abstrec"
	DNR             = "dnr"
	PayerCategory   = "pay_cat"
	TypeOfCoverage  = "pay_type"
	PlanCode        = "pay_plan"
	LanguageCode    = "pls_abbr"
	LanguageWriteIn = "pls_wrtin"
	AddressStreet   = "addr_street"
	AddressCity     = "addr_city"
	AddressCounty   = "patcnty"
	AddressState    = "addr_state"
	AddressZip      = "patzip"
	AddressCountry  = "addr_country"
	AddressHomeless = "addr_homeless"
)

// OtherDiagnosis is the key of the n-th other diagnosis slot (1-based).
func OtherDiagnosis(n int) string { return "odiag" + strconv.Itoa(n) }

// OtherPOA is the key of the n-th other present-on-admission slot.
func OtherPOA(n int) string { return "opoa" + strconv.Itoa(n) }

// OtherProcCode is the key of the n-th other procedure code slot.
func OtherProcCode(n int) string { return "oproc" + strconv.Itoa(n) }

// OtherProcDate is the key of the n-th other procedure date slot.
func OtherProcDate(n int) string { return "procdt" + strconv.Itoa(n) }

// OtherProcDays is the key of the n-th other procedure days slot.
func OtherProcDays(n int) string { return "procdy" + strconv.Itoa(n) }
