package commands

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrKeyRequired              = "--key is required"
	ErrProductOperationPair     = "--product and --operation must be given together"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoUseCases               = "No use cases configured."
	MsgGoodbye                  = "Goodbye."
)
