package domain

// Collection is an isolated namespace of documents (one chat window) with its
// own vector projection.
type Collection struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"` // unix millis
}

// Document is an ingested source file belonging to a collection.
type Document struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	Name         string `json:"name"`
	CreatedAt    int64  `json:"created_at"` // unix millis
}
