package entity

// Book is a catalogue record as served by the library API.
// AvailableCopies is computed by the backend and is only ever displayed.
type Book struct {
	ID              string `json:"_id"`
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Copies          int    `json:"copies"`
	AvailableCopies int    `json:"availableCopies"`
}

// Loanable reports whether the book may be offered in the loan form.
func (b Book) Loanable() bool {
	return b.AvailableCopies > 0
}
