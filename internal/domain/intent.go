package domain

// Intent labels what a prompt asks for.
type Intent string

const (
	IntentInstall Intent = "install"
	IntentSimple  Intent = "simple"
)
