package body

// ChipKind names what a reference chip points at.
type ChipKind string

const (
	ChipUser      ChipKind = "user"
	ChipRoomAlias ChipKind = "room-alias"
	ChipRoom      ChipKind = "room"
	ChipEvent     ChipKind = "event"
)

func (k ChipKind) className() string {
	switch k {
	case ChipUser:
		return "mx_Pill mx_UserPill"
	case ChipEvent:
		return "mx_Pill mx_EventPill"
	default:
		return "mx_Pill mx_RoomPill"
	}
}

// ChipInstance is a live reference chip owned by the tree that created it.
// It stays mounted until released, either explicitly or when the tree is
// disposed.
type ChipInstance struct {
	Node       NodeID
	Kind       ChipKind
	Identifier string
	Label      string
	Href       string
}

// ChipHost mounts and unmounts the interactive widget behind a chip.
type ChipHost interface {
	MountChip(treeID string, chip ChipInstance)
	UnmountChip(treeID string, chip ChipInstance)
}

type nopChipHost struct{}

func (nopChipHost) MountChip(string, ChipInstance)   {}
func (nopChipHost) UnmountChip(string, ChipInstance) {}
