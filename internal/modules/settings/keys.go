package settings

// Well-known setting keys. Values stored under these keys override the
// EIGENFOLIO_* environment defaults at startup and on the next solve.
const (
	KeyNumAssets    = "num_assets"
	KeyBudget       = "budget"
	KeyRiskAversion = "risk_aversion"
	KeyPenalty      = "penalty"
	KeySeed         = "seed"

	KeyVQEReps       = "vqe_reps"
	KeyVQERestarts   = "vqe_restarts"
	KeyQAOALayers    = "qaoa_layers"
	KeyQAOARestarts  = "qaoa_restarts"
	KeyMaxIterations = "solver_max_iterations"
)
