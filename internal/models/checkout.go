package models

// CustomerInfo is the checkout form. It only lives while one order message is composed.
type CustomerInfo struct {
	Name    string `json:"name" form:"name" validate:"required"`
	Address string `json:"address" form:"address" validate:"required"`
	Phone   string `json:"phone" form:"phone" validate:"required"`
}
