package enums

// SectionMode is the sub-state of an address section.
type SectionMode string

const (
	SectionModeEditing SectionMode = "editing"
	SectionModeDisplay SectionMode = "display"
)

// String implements fmt.Stringer.
func (m SectionMode) String() string {
	return string(m)
}
