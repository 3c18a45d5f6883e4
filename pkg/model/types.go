// Package model defines the data model consumed and produced by the
// scheduling core: shift catalogues, agent rosters, planning parameters,
// and the assignments the solver emits.
package model

// ShiftCode identifies a named shift. The built-in vocabulary used by the
// rest of this module is {MATIN, SOIR, JOUR_12H}, but the core treats shift
// codes abstractly — any string the catalogue declares is valid.
type ShiftCode string

const (
	ShiftMatin   ShiftCode = "MATIN"
	ShiftSoir    ShiftCode = "SOIR"
	ShiftJour12h ShiftCode = "JOUR_12H"
)

// ModeCode selects which shift codes are globally admissible for a request.
type ModeCode string

const (
	ModeJour12h   ModeCode = "12h_jour"
	ModeMatinSoir ModeCode = "matin_soir"
	ModeMixte     ModeCode = "mixte"
)

// LegalProfile is carried on PlanningParams and surfaced in compliance
// reports; no hard constraint currently branches on it.
type LegalProfile string

const (
	LegalProfileFPH          LegalProfile = "FPH"
	LegalProfileContractuel  LegalProfile = "contractuel"
	LegalProfileMixte        LegalProfile = "mixte"
)

// RegimeCode names a contractual regime. REGIME_MIXTE carries a
// special-cased resolution rule (see pkg/scheduler/regime); REGIME_POLYVALENT
// is the preferred regime for JOUR_12H reinforcement agents (see
// pkg/scheduler/driver).
type RegimeCode string

const (
	RegimeJour12h    RegimeCode = "REGIME_12H_JOUR"
	RegimeMatinOnly  RegimeCode = "REGIME_MATIN_ONLY"
	RegimeSoirOnly   RegimeCode = "REGIME_SOIR_ONLY"
	RegimeMixte      RegimeCode = "REGIME_MIXTE"
	RegimePolyvalent RegimeCode = "REGIME_POLYVALENT"
)

// PreferenceKind distinguishes a preference honoured by assigning the shift
// from one honoured by avoiding it.
type PreferenceKind string

const (
	PreferencePrefer PreferenceKind = "prefer"
	PreferenceAvoid  PreferenceKind = "avoid"
)

// Quotity is the employment fraction of an agent, used only to weight
// proportional-share targets.
type Quotity int

const (
	QuotityFull    Quotity = 100
	QuotityFourFif Quotity = 80
	QuotityHalf    Quotity = 50
)

// ResultStatus is the outcome of a BuildSolution call.
type ResultStatus string

const (
	StatusOK         ResultStatus = "ok"
	StatusInfeasible ResultStatus = "infeasible"
)
