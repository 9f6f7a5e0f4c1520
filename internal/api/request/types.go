package request

// MoveRequest is the request body for submitting a move
type MoveRequest struct {
	Move   string `json:"move"`
	Secret string `json:"secret"`
}

// ResignRequest is the request body for resigning
type ResignRequest struct {
	Secret string `json:"secret"`
}
