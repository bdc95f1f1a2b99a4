package enums

// SearchStatus distinguishes "no search performed" from "searched, nothing found".
type SearchStatus string

const (
	SearchStatusIdle    SearchStatus = "idle"
	SearchStatusResults SearchStatus = "results"
	SearchStatusEmpty   SearchStatus = "empty"
)

// String implements fmt.Stringer.
func (s SearchStatus) String() string {
	return string(s)
}
