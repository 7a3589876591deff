package shared

// Filter represents query filter options
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// NumberGenerator issues human-readable business numbers such as INV-…
type NumberGenerator interface {
	Generate(prefix string) string
}
