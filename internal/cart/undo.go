package cart

// UndoKind tags the two reversible mutations.
type UndoKind string

const (
	UndoKindRemove UndoKind = "remove"
	UndoKindUpdate UndoKind = "update"
)

// UndoRecord is the single-slot buffer entry holding the most recent
// reversible mutation. At most one exists at a time; a new destructive
// operation replaces any pending record.
type UndoRecord struct {
	Kind             UndoKind `json:"kind"`
	Line             Line     `json:"line"`
	PreviousQuantity int      `json:"previous_quantity,omitempty"`
	// Index is the line's position before a remove, so a replay puts it back
	// where it was instead of at the tail.
	Index int `json:"index,omitempty"`
}
