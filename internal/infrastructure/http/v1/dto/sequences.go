package dto

// SetSequenceRequest resets a counter. The next draw returns Value+1.
type SetSequenceRequest struct {
	Value *int64 `json:"value" binding:"required,min=0"`
}
