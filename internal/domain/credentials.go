package domain

// Credentials are the request-side inputs of a token validation.
type Credentials struct {
	Token    string
	Referrer string
	Path     string
	Method   string
}
