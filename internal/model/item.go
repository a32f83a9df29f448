package model

// Item is the only record the service keeps.  It has no identifier of
// its own: an item is addressed by its position in the store.
//
// Fields:
//
//	Name:        required display name.
//	Description: optional free text, rendered as null when absent.
//	Price:       required price.
//	Tax:         optional tax amount, rendered as null when absent.
type Item struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Price       float64  `json:"price"`
	Tax         *float64 `json:"tax"`
}

// ItemList is the payload returned by GET /items/.
type ItemList struct {
	Items []Item `json:"items"`
	Count int    `json:"count"`
}

// ItemCreated is the payload returned by POST /items/.
type ItemCreated struct {
	Message string `json:"message"`
	Item    Item   `json:"item"`
}
