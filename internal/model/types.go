package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Parameter is one continuous coupling of the parameterized theory. LHABlock
// and LHAID identify it inside simulator parameter cards and are matched
// case-sensitively there. MaxPower holds the maximal polynomial degree per
// operator configuration; Range only biases basis sampling and never clamps
// evaluation.
type Parameter struct {
	Name      string     `json:"name"`
	LHABlock  string     `json:"lha_block"`
	LHAID     int        `json:"lha_id"`
	MaxPower  []int      `json:"max_power"`
	Range     [2]float64 `json:"range"`
	Transform string     `json:"transform,omitempty"`
}

type Benchmark struct {
	Name   string             `json:"name"`
	Values map[string]float64 `json:"values"`
}

// Component is one monomial of the polynomial expansion. Powers is aligned
// with the declared parameter order; Config indexes the operator
// configuration the component was enumerated under.
type Component struct {
	Config int   `json:"config"`
	Powers []int `json:"powers"`
}

// Morphing ties components, basis benchmarks and the inverse matrix together
// with the fingerprint of the setup they were computed against. The record is
// stale whenever the fingerprint no longer matches the live setup. For
// NBases > 1 the matrix stacks the per-basis inverses vertically and Basis
// concatenates the bases in order.
type Morphing struct {
	VersionedRecord
	Components  []Component `json:"components"`
	Basis       []Benchmark `json:"basis"`
	Matrix      [][]float64 `json:"matrix"`
	NBases      int         `json:"n_bases"`
	Fingerprint string      `json:"fingerprint"`
}

// Setup is the persisted unit: ordered parameters, named benchmarks, the
// default sampling benchmark and, when computed, the morphing record.
type Setup struct {
	VersionedRecord
	Parameters       []Parameter `json:"parameters"`
	Benchmarks       []Benchmark `json:"benchmarks"`
	DefaultBenchmark string      `json:"default_benchmark,omitempty"`
	Morphing         *Morphing   `json:"morphing,omitempty"`
}

type ScanRecord struct {
	VersionedRecord
	ID              string  `json:"id"`
	Components      int     `json:"components"`
	NTrials         int     `json:"n_trials"`
	NTestThetas     int     `json:"n_test_thetas"`
	NBases          int     `json:"n_bases"`
	Seed            int64   `json:"seed"`
	Workers         int     `json:"workers"`
	BestScore       float64 `json:"best_score"`
	BestCondition   float64 `json:"best_condition"`
	DegenerateCount int     `json:"degenerate_count"`
	CreatedAtUTC    string  `json:"created_at_utc"`
}
