// Package dto defines data transfer objects for the instrument HTTP API.
package dto

// InstrumentItem is one instrument in API responses.
type InstrumentItem struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Exchange   string  `json:"exchange"`
	ListDate   string  `json:"list_date"`
	Industry   string  `json:"industry"`
	DelistDate *string `json:"delist_date,omitempty"`
}

// BoardMembers lists the current constituents of a board.
type BoardMembers struct {
	Board   string   `json:"board"`
	Symbols []string `json:"symbols"`
}

// InstrumentBoards lists the boards an instrument currently belongs to.
type InstrumentBoards struct {
	Symbol string   `json:"symbol"`
	Boards []string `json:"boards"`
}
