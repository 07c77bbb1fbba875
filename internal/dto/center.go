package dto

// CreateCenterRequest adds a collection center.
type CreateCenterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Location string `json:"location" validate:"required,max=255"`
}
