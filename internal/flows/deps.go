package flows

// Deps groups flow dependency sets. The Manager builds this once and
// delegates each operation to the matching flow.
type Deps struct {
	Credential CredentialDeps
	Startup    StartupDeps
	Logout     LogoutDeps
}
