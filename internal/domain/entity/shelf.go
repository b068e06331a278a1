package entity

// Shelf representa un estante dentro de una sección. (Name, SectionID) es único.
type Shelf struct {
	ID        int64
	Name      string
	SectionID int64
}
