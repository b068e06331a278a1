package entity

// Section representa una sección física del depósito (ej. "A", "B").
// El nombre es único; solo Description puede cambiar después de creada.
type Section struct {
	ID          int64
	Name        string
	Description *string
}
